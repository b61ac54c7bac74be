package dbclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"forestnav/internal/domain"
)

// mongoWriter implements Writer for MongoDB. Tables map to collections and
// rows to documents; collections are created on first insert.
type mongoWriter struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

// buildMongoURI returns the connection URI and the database name for t.
func buildMongoURI(t *domain.ExportTarget, password string) (string, string) {
	var uri string

	// A full connection string (Atlas mongodb+srv:// or standard mongodb://)
	// is used as is. Otherwise the URI is built from host:port.
	switch {
	case t.DSN != "":
		uri = t.DSN
	case strings.HasPrefix(t.Host, "mongodb+srv://") || strings.HasPrefix(t.Host, "mongodb://"):
		uri = t.Host
	}

	if uri != "" {
		// Replace <password> placeholder commonly found in Atlas connection strings
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
			uri = strings.ReplaceAll(uri, "<db_password>", password)
		}
	} else {
		port := t.Port
		if port == 0 {
			port = 27017
		}
		if t.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", t.Username, password, t.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", t.Host, port)
		}

		// Options carry authSource, replicaSet, etc. Sorted for a stable URI.
		if len(t.Options) > 0 {
			keys := make([]string, 0, len(t.Options))
			for k := range t.Options {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			params := make([]string, len(keys))
			for i, k := range keys {
				params[i] = k + "=" + t.Options[k]
			}
			uri += "/?" + strings.Join(params, "&")
		}
	}

	dbName := t.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	return uri, dbName
}

// databaseFromURI extracts the path of user:pass@host/DB_NAME?params,
// falling back to "test" like the mongo shell.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.Index(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash != -1 {
		path := rest[slash+1:]
		if q := strings.Index(path, "?"); q != -1 {
			path = path[:q]
		}
		if path != "" {
			return path
		}
	}
	return "test"
}

func newMongoWriter(t *domain.ExportTarget, password string, logger *zap.Logger) (*mongoWriter, error) {
	uri, dbName := buildMongoURI(t, password)

	// Mask password in URI for logging
	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	logger.Debug("connecting to mongo", zap.String("uri", logURI), zap.String("database", dbName))

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoWriter{client: client, dbName: dbName, logger: logger}, nil
}

func (m *mongoWriter) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

// EnsureTable is a no-op: collections are schemaless.
func (m *mongoWriter) EnsureTable(ctx context.Context, table string, cols []Column) error {
	return nil
}

// ResetTable clears the collection. Documents carry their own fields.
func (m *mongoWriter) ResetTable(ctx context.Context, table string, cols []Column) error {
	res, err := m.client.Database(m.dbName).Collection(table).DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	m.logger.Debug("cleared collection", zap.String("collection", table), zap.Int64("deleted", res.DeletedCount))
	return nil
}

func (m *mongoWriter) InsertRows(ctx context.Context, table string, cols []Column, rows [][]any) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	docs := make([]any, len(rows))
	for i, row := range rows {
		doc := make(bson.D, 0, len(cols))
		for j, c := range cols {
			var v any
			if j < len(row) {
				v = row[j]
			}
			doc = append(doc, bson.E{Key: c.Name, Value: v})
		}
		docs[i] = doc
	}

	res, err := m.client.Database(m.dbName).Collection(table).InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return len(res.InsertedIDs), nil
}

// Describe samples one document and reports its fields in sorted order.
func (m *mongoWriter) Describe(ctx context.Context, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}

	var doc bson.M
	err := m.client.Database(m.dbName).Collection(table).FindOne(ctx, bson.M{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return info, nil
	}
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}

	for k, v := range doc {
		if k == "_id" {
			continue
		}
		info.Columns = append(info.Columns, ColumnInfo{Name: k, Type: fmt.Sprintf("%T", v)})
	}
	sort.Slice(info.Columns, func(i, j int) bool { return info.Columns[i].Name < info.Columns[j].Name })
	return info, nil
}

func (m *mongoWriter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
