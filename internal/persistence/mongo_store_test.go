package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/deepflow/internal/testutil"
)

type MongoDBStoreTestSuite struct {
	suite.Suite
	uri    string
	client *mongo.Client
	store  *MongoFlowStore
}

func TestMongoDBTestSuite(t *testing.T) {
	suite.Run(t, &MongoDBStoreTestSuite{uri: testutil.GetMongoURI(t)})
}

func (m *MongoDBStoreTestSuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.uri))
	m.Require().NoError(err, "mongo.Connect failed")
	m.Require().NoError(client.Ping(ctx, nil))
	m.client = client
	m.store = NewMongoFlowStore(client, "deepflow_test", "flows")
}

func (m *MongoDBStoreTestSuite) TearDownSuite() {
	_ = m.client.Disconnect(context.Background())
}

func (m *MongoDBStoreTestSuite) SetupTest() {
	err := m.client.Database("deepflow_test").Collection("flows").Drop(context.Background())
	m.Require().NoError(err)
}

func (m *MongoDBStoreTestSuite) TestContract() {
	testFlowStoreContract(m.T(), m.store)
}
