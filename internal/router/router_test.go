package router

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/catalog"
	"github.com/farmchain/farmchain-backend/internal/config"
	"github.com/farmchain/farmchain-backend/internal/geo"
	"github.com/farmchain/farmchain-backend/internal/i18n"
	"github.com/farmchain/farmchain-backend/internal/utils"
)

var signer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Submit(ctx context.Context, call blockchain.ContractCall) (*blockchain.Receipt, error) {
	args := m.Called(ctx, call)
	if receipt := args.Get(0); receipt != nil {
		return receipt.(*blockchain.Receipt), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) TransactionStatus(ctx context.Context, hash common.Hash) (*blockchain.TxStatus, error) {
	args := m.Called(ctx, hash)
	if status := args.Get(0); status != nil {
		return status.(*blockchain.TxStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLedger) Address() common.Address { return signer }

func (m *mockLedger) ChainID() *big.Int { return big.NewInt(31337) }

func (m *mockLedger) Sent() uint64 { return 7 }

type RouterTestSuite struct {
	suite.Suite
	ledger   *mockLedger
	market   *httptest.Server
	marketOK atomic.Bool
	cfg      *config.Config
	router   *gin.Engine
	stop     func()
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("en"))

	suite.market = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !suite.marketOK.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"records": [{"commodity": "Tomato", "modal_price": "1200"}]}`))
	}))
}

func (suite *RouterTestSuite) TearDownSuite() {
	suite.market.Close()
}

func (suite *RouterTestSuite) SetupTest() {
	suite.marketOK.Store(true)
	suite.ledger = new(mockLedger)
	suite.cfg = &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			CORSOrigins: []string{"*"},
			RateLimit:   1000,
			RateBurst:   1000,
		},
		Pricing: config.PricingConfig{
			MarkupPer100Km:  geo.DefaultPricing.MarkupPer100Km,
			MaxMarkup:       geo.DefaultPricing.MaxMarkup,
			DefaultBuyerLat: 11.0168,
			DefaultBuyerLng: 76.9558,
		},
		MarketData: config.MarketDataConfig{
			BaseURL:    suite.market.URL,
			ResourceID: "prices",
			APIKey:     "key",
			Timeout:    time.Second,
		},
		JWT: config.JWTConfig{Issuer: "farmchain"},
	}
	suite.build()
}

func (suite *RouterTestSuite) TearDownTest() {
	suite.stop()
}

func (suite *RouterTestSuite) build() {
	if suite.stop != nil {
		suite.stop()
	}
	listings, err := catalog.Seed()
	suite.Require().NoError(err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	suite.router, suite.stop = Initialize(Dependencies{
		Config:  suite.cfg,
		Logger:  logger,
		Ledger:  suite.ledger,
		Catalog: listings,
	})
}

func (suite *RouterTestSuite) do(method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var out map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func farmer() map[string]interface{} {
	return map[string]interface{}{
		"name":      "Senthil Kumar",
		"location":  "Coimbatore",
		"latitude":  11.0168,
		"longitude": "76.9558",
	}
}

func (suite *RouterTestSuite) TestRegisterFarmerOnBothPaths() {
	receipt := &blockchain.Receipt{TxHash: common.HexToHash("0x01"), Success: true, BlockNumber: 42, Nonce: 5}
	suite.ledger.On("Submit", mock.Anything, mock.MatchedBy(func(call blockchain.ContractCall) bool {
		return call.Method == blockchain.MethodRegisterFarmer && call.Args[2] == int64(11016800)
	})).Return(receipt, nil).Twice()

	for _, path := range []string{"/v1/register-farmer", "/registerFarmer"} {
		w, body := suite.do(http.MethodPost, path, farmer())

		suite.Equal(http.StatusOK, w.Code, path)
		suite.Equal(true, body["success"])
		suite.Equal(receipt.TxHash.Hex(), body["transactionHash"])
		suite.Equal(float64(42), body["blockNumber"])
		suite.Equal(float64(5), body["nonce"])
		suite.NotEmpty(w.Header().Get(utils.RequestIDHeader))
	}
	suite.ledger.AssertExpectations(suite.T())
}

func (suite *RouterTestSuite) TestValidationFailuresAreBadRequests() {
	bad := farmer()
	bad["latitude"] = 123.4

	w, body := suite.do(http.MethodPost, "/v1/register-farmer", bad)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(false, body["success"])
	suite.Equal("validation", body["kind"])
	suite.Contains(body["error"], "latitude")

	w, body = suite.do(http.MethodPost, "/registerConsumer", `{"name": `)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("validation", body["kind"])

	w, _ = suite.do(http.MethodPost, "/buyProduct", map[string]interface{}{"productId": 1, "value": "1e18"})
	suite.Equal(http.StatusBadRequest, w.Code)

	suite.ledger.AssertNotCalled(suite.T(), "Submit", mock.Anything, mock.Anything)
}

func (suite *RouterTestSuite) TestLedgerErrorMapping() {
	hash := common.HexToHash("0xbeef")
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{&blockchain.Error{Kind: blockchain.KindReverted, Method: "buyProduct", TxHash: hash, Reason: "Insufficient payment"}, http.StatusInternalServerError, "reverted"},
		{&blockchain.Error{Kind: blockchain.KindReverted, Method: "buyProduct", Reason: "Product not available"}, http.StatusInternalServerError, "reverted"},
		{&blockchain.Error{Kind: blockchain.KindRejected, Method: "buyProduct", Reason: "insufficient funds for gas"}, http.StatusInternalServerError, "rejected"},
		{&blockchain.Error{Kind: blockchain.KindNetwork, Method: "buyProduct"}, http.StatusBadGateway, "network"},
		{&blockchain.Error{Kind: blockchain.KindTimeout, Method: "buyProduct", TxHash: hash, Nonce: 9}, http.StatusGatewayTimeout, "timeout"},
	}

	for _, tt := range tests {
		suite.Run(tt.kind, func() {
			suite.ledger.On("Submit", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w, body := suite.do(http.MethodPost, "/v1/buy-product", map[string]interface{}{"productId": "1", "value": "0.05"})

			suite.Equal(tt.status, w.Code)
			suite.Equal(false, body["success"])
			suite.Equal(tt.kind, body["kind"])
			details := body["details"].(map[string]interface{})
			gwErr := tt.err.(*blockchain.Error)
			suite.Equal(gwErr.Retryable(), details["retryable"])
			if gwErr.Reason != "" {
				suite.Contains(body["error"], gwErr.Reason)
			}
			if gwErr.TxHash != (common.Hash{}) {
				suite.Equal(hash.Hex(), details["transactionHash"])
			}
		})
	}
}

func (suite *RouterTestSuite) TestClosedGateway() {
	suite.ledger.On("Submit", mock.Anything, mock.Anything).Return(nil, blockchain.ErrClosed).Once()

	w, _ := suite.do(http.MethodPost, "/v1/register-product", map[string]interface{}{
		"name": "Tomatoes", "basePrice": 1000, "description": "Organic", "location": "Mettupalayam", "deliveryRange": 50,
	})
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *RouterTestSuite) TestCatalog() {
	w, body := suite.do(http.MethodGet, "/v1/catalog", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	items := body["data"].([]interface{})
	suite.Len(items, 8)
	first := items[0].(map[string]interface{})
	suite.Equal("Local Green Chillies", first["name"])
	suite.Equal("8", w.Header().Get("X-Total-Count"))

	w, body = suite.do(http.MethodGet, "/v1/catalog?lat=11.299&lng=76.9422&category=vegetables&limit=1", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	items = body["data"].([]interface{})
	suite.Len(items, 1)
	suite.Equal("Fresh Local Tomatoes", items[0].(map[string]interface{})["name"])
	suite.Equal("3", w.Header().Get("X-Total-Count"))

	w, _ = suite.do(http.MethodGet, "/v1/catalog?lat=north&lng=1", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/catalog?lat=95&lng=1", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/catalog?max_distance=-3", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *RouterTestSuite) TestQuote() {
	w, body := suite.do(http.MethodGet, "/v1/catalog/2/quote", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	quote := body["data"].(map[string]interface{})["quote"].(map[string]interface{})
	suite.Equal(false, quote["deliverable"])
	suite.Greater(quote["adjusted_price"], float64(1500))

	w, body = suite.do(http.MethodGet, "/v1/catalog/99/quote", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("not_found", body["kind"])
}

func (suite *RouterTestSuite) TestTransactionStatus() {
	hash := common.HexToHash("0x1234")
	suite.ledger.On("TransactionStatus", mock.Anything, hash).
		Return(&blockchain.TxStatus{TxHash: hash, State: blockchain.TxStateConfirmed, Receipt: &blockchain.Receipt{TxHash: hash, Success: true, BlockNumber: 3}}, nil).Once()
	unknown := common.HexToHash("0x5678")
	suite.ledger.On("TransactionStatus", mock.Anything, unknown).
		Return(&blockchain.TxStatus{TxHash: unknown, State: blockchain.TxStateUnknown}, nil).Once()

	w, body := suite.do(http.MethodGet, "/v1/transactions/"+hash.Hex(), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("confirmed", body["data"].(map[string]interface{})["state"])

	w, _ = suite.do(http.MethodGet, "/v1/transactions/"+unknown.Hex(), nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/transactions/0x1234", nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/transactions", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestMarketData() {
	w, body := suite.do(http.MethodGet, "/v1/market-data", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal(true, body["success"])

	w, _ = suite.do(http.MethodGet, "/agriMarketData", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var records []map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &records))
	suite.Equal("Tomato", records[0]["commodity"])

	suite.marketOK.Store(false)
	w, body = suite.do(http.MethodGet, "/agriMarketData", nil)
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Equal("Failed to fetch market data", body["error"])

	w, body = suite.do(http.MethodGet, "/v1/market-data", nil)
	suite.Equal(http.StatusBadGateway, w.Code)
	suite.Equal("upstream", body["kind"])
}

func (suite *RouterTestSuite) TestHealth() {
	w, body := suite.do(http.MethodGet, "/health", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("ok", body["status"])
	suite.Equal(signer.Hex(), body["signer"])
	suite.Equal("31337", body["chainId"])
}

func (suite *RouterTestSuite) TestLocalizedErrors() {
	w, body := suite.do(http.MethodGet, "/v1/catalog/99/quote", nil, "Accept-Language", "ta-IN")
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(i18n.T("ta", i18n.KeyListingNotFound), body["error"])
	suite.NotEqual(i18n.T("en", i18n.KeyListingNotFound), body["error"])
}

func (suite *RouterTestSuite) TestOperatorTokenGuardsWrites() {
	suite.cfg.JWT.SecretKey = "secret"
	suite.build()

	w, _ := suite.do(http.MethodPost, "/v1/register-farmer", farmer())
	suite.Equal(http.StatusUnauthorized, w.Code)
	w, _ = suite.do(http.MethodPost, "/registerFarmer", farmer())
	suite.Equal(http.StatusUnauthorized, w.Code)

	w, _ = suite.do(http.MethodGet, "/v1/catalog", nil)
	suite.Equal(http.StatusOK, w.Code)

	token, err := utils.NewTokenIssuer("secret", "farmchain").Generate("ops", utils.RoleOperator, time.Minute)
	suite.Require().NoError(err)
	suite.ledger.On("Submit", mock.Anything, mock.Anything).Return(&blockchain.Receipt{Success: true}, nil).Once()

	w, _ = suite.do(http.MethodPost, "/v1/register-farmer", farmer(), "Authorization", "Bearer "+token)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *RouterTestSuite) TestUnknownRoute() {
	w, body := suite.do(http.MethodGet, "/nope", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal(false, body["success"])
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
