// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tsalo/fieldscan/internal/conf"
	"github.com/tsalo/fieldscan/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the runner needs for result persistence.
type Interface interface {
	Open() error
	SaveRun(run *BatchRun) error
	SaveResults(runID string, results []Result) error
	GetRun(runID string) (*BatchRun, error)
	GetResults(runID string) ([]Result, error)
	Close() error
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a store matching the enabled output database, or nil when
// result persistence is disabled entirely.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SaveRun inserts the run on first call and updates it afterwards, keyed by
// the runner's uuid. The runner calls this once at batch start and once at
// completion.
func (ds *DataStore) SaveRun(run *BatchRun) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}

	var existing BatchRun
	err := ds.DB.Where("run_id = ?", run.RunID).First(&existing).Error
	switch {
	case err == nil:
		run.ID = existing.ID
		if err := ds.DB.Save(run).Error; err != nil {
			return fmt.Errorf("updating run %s: %w", run.RunID, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := ds.DB.Create(run).Error; err != nil {
			return fmt.Errorf("saving run %s: %w", run.RunID, err)
		}
		return nil
	default:
		return fmt.Errorf("looking up run %s: %w", run.RunID, err)
	}
}

// SaveResults stores one file's detection rows in a single transaction so a
// crash mid-batch never leaves a partially persisted file.
func (ds *DataStore) SaveResults(runID string, results []Result) error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	if len(results) == 0 {
		return nil
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range results {
			results[i].RunID = runID
			if err := tx.Create(&results[i]).Error; err != nil {
				return fmt.Errorf("saving result for %s: %w", results[i].File, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run by its uuid.
func (ds *DataStore) GetRun(runID string) (*BatchRun, error) {
	var run BatchRun
	if err := ds.DB.Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	return &run, nil
}

// GetResults retrieves every detection row of a run in insertion order.
func (ds *DataStore) GetResults(runID string) ([]Result, error) {
	var results []Result
	if err := ds.DB.Where("run_id = ?", runID).Order("id").Find(&results).Error; err != nil {
		return nil, fmt.Errorf("getting results for run %s: %w", runID, err)
	}
	return results, nil
}

// close closes the underlying sql.DB; shared by both store flavors.
func (ds *DataStore) close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("retrieving database handle: %w", err)
	}
	return sqlDB.Close()
}
