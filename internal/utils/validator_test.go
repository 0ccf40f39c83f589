package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Amount string `json:"amount" validate:"required,decimal_text"`
	Count  string `json:"count" validate:"uint_text"`
	Lat    string `json:"lat,omitempty" validate:"omitempty,latitude"`
}

func TestCustomTags(t *testing.T) {
	tests := []struct {
		name  string
		in    sample
		field string
	}{
		{"valid", sample{Amount: "0.5", Count: "3"}, ""},
		{"leading dot", sample{Amount: ".5", Count: "0"}, ""},
		{"trailing dot", sample{Amount: "5.", Count: "0"}, ""},
		{"exponent", sample{Amount: "5e3", Count: "0"}, "amount"},
		{"negative amount", sample{Amount: "-1", Count: "0"}, "amount"},
		{"negative count", sample{Amount: "1", Count: "-1"}, "count"},
		{"fractional count", sample{Amount: "1", Count: "1.5"}, "count"},
		{"latitude", sample{Amount: "1", Count: "1", Lat: "91"}, "lat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			fields := GetValidationErrors(err)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.field, fields[0].Field)
			assert.Contains(t, fields[0].Message, tt.field)
		})
	}
}

func TestPageBounds(t *testing.T) {
	start, end := PageBounds(45, PaginationParams{Page: 3, Limit: 20})
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	start, end = PageBounds(5, PaginationParams{Page: 4, Limit: 20})
	assert.Equal(t, 5, start)
	assert.Equal(t, 5, end)

	result := CreatePaginationResult([]int{}, 45, PaginationParams{Page: 1, Limit: 20})
	assert.Equal(t, 3, result.TotalPages)
}
