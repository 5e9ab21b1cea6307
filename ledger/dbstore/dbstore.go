package dbstore

import (
	"context"
	"fmt"

	"teamflow/bizerror"
	"teamflow/ledger"
	"teamflow/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

const versionRowID = 1

type ledgerRow struct {
	Seq           uint64   `gorm:"primary_key;auto_increment:false"`
	RecordID      types.ID `gorm:"column:record_id;unique_index"`
	DocumentRef   string   `gorm:"type:varchar(255);not null"`
	Category      string   `gorm:"type:varchar(32);not null"`
	Assignee      string   `gorm:"type:varchar(128);not null"`
	CreatedTime   string   `gorm:"column:created_at;type:varchar(19);not null"`
	WorkClass     string   `gorm:"type:varchar(128)"`
	Amount        float64
	PaymentStatus string `gorm:"type:varchar(32)"`
	Priority      string `gorm:"type:varchar(32)"`
}

func (ledgerRow) TableName() string {
	return "ledger_rows"
}

// ledgerVersion single row table, its version changes with every write of ledger_rows.
type ledgerVersion struct {
	ID      int    `gorm:"primary_key;auto_increment:false"`
	Version string `gorm:"type:varchar(64);not null"`
}

func (ledgerVersion) TableName() string {
	return "ledger_versions"
}

// Store ledger backend on a relational database, mysql in production and sqlite in tests.
type Store struct {
	ds *persistence.DataSourceManager
}

func New(ds *persistence.DataSourceManager) *Store {
	return &Store{ds: ds}
}

func (s *Store) Migrate(ctx context.Context) error {
	db := s.ds.GormDB(ctx)
	if err := db.AutoMigrate(&ledgerRow{}, &ledgerVersion{}).Error; err != nil {
		return err
	}
	v := ledgerVersion{}
	return db.Where(&ledgerVersion{ID: versionRowID}).
		Attrs(&ledgerVersion{Version: newVersion()}).FirstOrCreate(&v).Error
}

func (s *Store) Read(ctx context.Context) (ledger.Table, error) {
	tx := s.ds.GormDB(ctx).BeginTx(ctx, nil)
	if tx.Error != nil {
		return ledger.Table{}, tx.Error
	}
	defer tx.Rollback()

	v, err := currentVersion(tx)
	if err != nil {
		return ledger.Table{}, err
	}
	var records []ledgerRow
	if err := tx.Order("seq asc").Find(&records).Error; err != nil {
		return ledger.Table{}, err
	}
	if err := tx.Commit().Error; err != nil {
		return ledger.Table{}, err
	}

	rows := make([]ledger.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, ledger.Row{
			ID: r.RecordID, DocumentRef: r.DocumentRef, Category: r.Category, Assignee: r.Assignee,
			CreatedAt: r.CreatedTime, WorkClass: r.WorkClass, Amount: r.Amount,
			PaymentStatus: r.PaymentStatus, Priority: r.Priority,
		})
	}
	return ledger.Table{Rows: rows, Version: v}, nil
}

func (s *Store) WriteAll(ctx context.Context, rows []ledger.Row, expectedVersion string) (string, error) {
	version := newVersion()
	err := s.ds.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&ledgerVersion{}).Where("id = ?", versionRowID)
		if expectedVersion != ledger.AnyVersion {
			q = q.Where("version = ?", expectedVersion)
		}
		result := q.Update("version", version)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			current, err := currentVersion(tx)
			if err != nil {
				return err
			}
			return fmt.Errorf("%w: expected %s, found %s", bizerror.ErrConflict, expectedVersion, current)
		}

		if err := tx.Exec("DELETE FROM ledger_rows").Error; err != nil {
			return err
		}
		for i, r := range rows {
			record := ledgerRow{
				Seq: uint64(i + 1), RecordID: r.ID, DocumentRef: r.DocumentRef, Category: r.Category,
				Assignee: r.Assignee, CreatedTime: r.CreatedAt, WorkClass: r.WorkClass, Amount: r.Amount,
				PaymentStatus: r.PaymentStatus, Priority: r.Priority,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return version, nil
}

func currentVersion(tx *gorm.DB) (string, error) {
	v := ledgerVersion{}
	if err := tx.Where("id = ?", versionRowID).First(&v).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return "", fmt.Errorf("ledger tables are not migrated")
		}
		return "", err
	}
	return v.Version, nil
}

func newVersion() string {
	return uuid.New().String()
}
