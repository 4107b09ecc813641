package dbclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"csvhouse/internal/domain"
)

// mongoConnector implements Connector for MongoDB. The table is a
// collection of Record documents and the schema is its index on id.
type mongoConnector struct {
	client       *mongo.Client
	dbName       string
	queryTimeout time.Duration
}

// buildMongoURI accepts either a full mongodb:// or mongodb+srv:// URI in
// Host or builds one from host and port.
func buildMongoURI(conn *domain.StoreConnection) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		// Atlas connection strings carry a password placeholder
		if conn.Password != "" {
			uri = strings.ReplaceAll(uri, "<password>", conn.Password)
			uri = strings.ReplaceAll(uri, "<db_password>", conn.Password)
		}
		return uri
	}

	port := conn.Port
	if port == 0 {
		port = 27017
	}
	if conn.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", conn.Username, conn.Password, conn.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", conn.Host, port)
}

func newMongoConnector(ctx context.Context, conn *domain.StoreConnection) (*mongoConnector, error) {
	dbName := conn.Database
	if dbName == "" {
		dbName = "test"
	}

	opts := options.Client().ApplyURI(buildMongoURI(conn))
	if conn.DialTimeout > 0 {
		opts.SetConnectTimeout(conn.DialTimeout)
		opts.SetServerSelectionTimeout(conn.DialTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	zlog.Debug().Str("database", dbName).Msg("mongo client created")
	return &mongoConnector{client: client, dbName: dbName, queryTimeout: conn.QueryTimeout}, nil
}

func (m *mongoConnector) collection(name string) *mongo.Collection {
	return m.client.Database(m.dbName).Collection(name)
}

func (m *mongoConnector) TestConnection(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *mongoConnector) EnsureSchema(ctx context.Context, table string) error {
	if err := checkIdent(domain.ErrSchema, "ensure schema", table); err != nil {
		return err
	}
	ctx, cancel := withQueryTimeout(ctx, m.queryTimeout)
	defer cancel()

	// CreateOne is a no-op when an identical index exists.
	_, err := m.collection(table).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}},
	})
	if err != nil {
		return domain.Wrap(domain.ErrSchema, "ensure schema", fmt.Errorf("%s: %w", table, err))
	}
	return nil
}

func (m *mongoConnector) InsertRecords(ctx context.Context, table string, records []domain.Record) (int, error) {
	if err := checkIdent(domain.ErrInsert, "insert", table); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	ctx, cancel := withQueryTimeout(ctx, m.queryTimeout)
	defer cancel()

	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = r
	}
	res, err := m.collection(table).InsertMany(ctx, docs)
	if err != nil {
		return 0, domain.Wrap(domain.ErrInsert, "insert", fmt.Errorf("%s: %w", table, err))
	}
	return len(res.InsertedIDs), nil
}

func (m *mongoConnector) SelectRecords(ctx context.Context, table string) ([]domain.Record, error) {
	if err := checkIdent(domain.ErrQuery, "select", table); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, m.queryTimeout)
	defer cancel()

	cursor, err := m.collection(table).Find(ctx, bson.D{}, options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}}))
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select", err)
	}
	var out []domain.Record
	if err := cursor.All(ctx, &out); err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select", fmt.Errorf("decode: %w", err))
	}
	return out, nil
}

func (m *mongoConnector) SelectColumn(ctx context.Context, table, column string) ([]float64, error) {
	if err := checkIdent(domain.ErrQuery, "select column", table); err != nil {
		return nil, err
	}
	if err := checkIdent(domain.ErrQuery, "select column", column); err != nil {
		return nil, err
	}
	ctx, cancel := withQueryTimeout(ctx, m.queryTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}, {Key: column, Value: 1}})
	cursor, err := m.collection(table).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", err)
	}
	defer cursor.Close(ctx)

	var out []float64
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, domain.Wrap(domain.ErrQuery, "select column", fmt.Errorf("decode: %w", err))
		}
		if v, ok := toFloat(doc[column]); ok {
			out = append(out, v)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.Wrap(domain.ErrQuery, "select column", err)
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (m *mongoConnector) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
