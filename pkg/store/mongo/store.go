// Package mongo persists scan reports in MongoDB.
//
// Reports live in the scans collection of the dependency-manager database.
// The store implements [scan.Store] so callers (API, worker, tests) depend
// only on the interface.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/observability"
	"github.com/depsentry/depsentry/pkg/scan"
)

// scansCollection is the collection holding scan report documents.
const scansCollection = "scans"

// connectTimeout bounds the initial connection handshake.
const connectTimeout = 10 * time.Second

// Config holds the MongoDB connection settings.
type Config struct {
	URI      string // Connection string, e.g. "mongodb://localhost:27017"
	Database string // Database name, e.g. "dependency-manager"
}

// Store is a MongoDB-backed scan report store.
type Store struct {
	client *driver.Client
	scans  *driver.Collection
	logger *log.Logger
}

// NewStore connects to MongoDB and verifies the connection with a ping.
func NewStore(ctx context.Context, cfg Config, logger *log.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := driver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to %s", cfg.URI)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "ping %s", cfg.URI)
	}

	logger.Info("connected to MongoDB", "database", cfg.Database)
	return &Store{
		client: client,
		scans:  client.Database(cfg.Database).Collection(scansCollection),
		logger: logger,
	}, nil
}

// Save writes a report, overwriting any document with the same ID.
func (s *Store) Save(ctx context.Context, r *scan.Report) error {
	start := time.Now()
	err := s.save(ctx, r)
	observability.Store().OnSave(ctx, r.ID, time.Since(start), err)
	return err
}

func (s *Store) save(ctx context.Context, r *scan.Report) error {
	if err := errors.ValidateScanID(r.ID); err != nil {
		return err
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.scans.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, opts); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "save scan %s", r.ID)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *Store) Get(ctx context.Context, id string) (*scan.Report, error) {
	start := time.Now()
	r, err := s.get(ctx, id)
	observability.Store().OnLoad(ctx, id, time.Since(start), err)
	return r, err
}

func (s *Store) get(ctx context.Context, id string) (*scan.Report, error) {
	if err := errors.ValidateScanID(id); err != nil {
		return nil, err
	}
	var r scan.Report
	err := s.scans.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == driver.ErrNoDocuments {
		return nil, errors.New(errors.ErrCodeScanNotFound, "scan %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load scan %s", id)
	}
	return &r, nil
}

// List returns the most recent reports for a repository, newest first.
// An empty repository lists across all repositories.
func (s *Store) List(ctx context.Context, repository string, limit int) ([]*scan.Report, error) {
	filter := bson.M{}
	if repository != "" {
		filter["repository"] = repository
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.scans.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "list scans for %q", repository)
	}
	defer cur.Close(ctx)

	var reports []*scan.Report
	if err := cur.All(ctx, &reports); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "decode scans for %q", repository)
	}
	return reports, nil
}

// UpdateDependencyAnalysis patches fields of one dependency entry inside a
// scan document, matched by package name. Field keys are relative to the
// dependency (e.g. "vulnerability_count"). Returns SCAN_NOT_FOUND when no
// document matches.
func (s *Store) UpdateDependencyAnalysis(ctx context.Context, scanID, packageName string, fields map[string]any) error {
	if err := errors.ValidateScanID(scanID); err != nil {
		return err
	}
	if err := errors.ValidatePackageName(packageName); err != nil {
		return err
	}

	set := bson.M{}
	for k, v := range fields {
		set[fmt.Sprintf("dependencies.$[dep].%s", k)] = v
	}
	set["dependencies.$[dep].analyzed_at"] = time.Now().UTC()

	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []any{bson.M{"dep.name": packageName}},
	})
	res, err := s.scans.UpdateOne(ctx, bson.M{"_id": scanID}, bson.M{"$set": set}, opts)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "update scan %s dependency %s", scanID, packageName)
	}
	if res.MatchedCount == 0 {
		return errors.New(errors.ErrCodeScanNotFound, "scan %s not found", scanID)
	}
	return nil
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "ping")
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "disconnect")
	}
	s.logger.Info("MongoDB connection closed")
	return nil
}
