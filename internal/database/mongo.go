package database

import (
	"context"
	"fmt"
	"strconv"

	"ecommerce-dashboard/internal/dataset"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoDatabase = "dashboard"

type MongoDriver struct {
	client *mongo.Client
	// Database defaults to "dashboard".
	Database string
}

func (md *MongoDriver) Connect(ctx context.Context, dsn string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("ping mongo: %w", err)
	}
	md.client = client
	return nil
}

func (md *MongoDriver) Close() error {
	if md.client == nil {
		return nil
	}
	return md.client.Disconnect(context.Background())
}

func (md *MongoDriver) collection(table dataset.Table) *mongo.Collection {
	name := md.Database
	if name == "" {
		name = defaultMongoDatabase
	}
	return md.client.Database(name).Collection(string(table))
}

func (md *MongoDriver) Reset(ctx context.Context) error {
	for _, table := range dataset.AllTables {
		if err := md.collection(table).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// Import inserts documents in batches. It is not transactional: a failed
// import leaves a partial dataset and must be followed by Reset.
func (md *MongoDriver) Import(ctx context.Context, t *dataset.Tables) error {
	for _, table := range dataset.AllTables {
		recs := t.Records(table)
		for start := 0; start < len(recs); start += importBatch {
			end := min(start+importBatch, len(recs))
			docs := make([]any, 0, end-start)
			for i := start; i < end; i++ {
				doc, err := toDocument(table, i, recs[i])
				if err != nil {
					return fmt.Errorf("encode %s row %d: %w", table, i, err)
				}
				docs = append(docs, doc)
			}
			if _, err := md.collection(table).InsertMany(ctx, docs); err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
		}
	}
	return nil
}

func toDocument(table dataset.Table, row int, rec dataset.Record) (bson.D, error) {
	doc := bson.D{{Key: rowColumn, Value: int32(row)}}
	for _, col := range table.Columns() {
		v := rec[col]
		if v == "" {
			continue
		}
		switch col {
		case "price":
			d, err := primitive.ParseDecimal128(v)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: col, Value: d})
		case "order_item_id", "review_score":
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: col, Value: int32(n)})
		default:
			doc = append(doc, bson.E{Key: col, Value: v})
		}
	}
	return doc, nil
}

// fromDocument turns a stored document back into a text record.
func fromDocument(table dataset.Table, doc bson.M) dataset.Record {
	rec := make(dataset.Record, len(table.Columns()))
	for _, col := range table.Columns() {
		switch v := doc[col].(type) {
		case nil:
			rec[col] = ""
		case string:
			rec[col] = v
		case int32:
			rec[col] = strconv.FormatInt(int64(v), 10)
		case int64:
			rec[col] = strconv.FormatInt(v, 10)
		case float64:
			rec[col] = strconv.FormatFloat(v, 'f', -1, 64)
		case primitive.Decimal128:
			rec[col] = v.String()
		default:
			rec[col] = fmt.Sprint(v)
		}
	}
	return rec
}

func (md *MongoDriver) Load(ctx context.Context) (*dataset.Tables, error) {
	tables := &dataset.Tables{}
	for _, table := range dataset.AllTables {
		if err := md.loadCollection(ctx, table, tables); err != nil {
			return nil, dataset.Unavailable(table, KindMongo, err)
		}
	}
	return tables, nil
}

func (md *MongoDriver) loadCollection(ctx context.Context, table dataset.Table, tables *dataset.Tables) error {
	cursor, err := md.collection(table).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: rowColumn, Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		if err := tables.Append(table, fromDocument(table, doc)); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (md *MongoDriver) Fingerprint(ctx context.Context) (string, error) {
	return countFingerprint(ctx, func(ctx context.Context, table dataset.Table) (int64, error) {
		return md.collection(table).EstimatedDocumentCount(ctx)
	}, KindMongo)
}
