package database

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{
			name:   "successful connection with in-memory database",
			dbPath: ":memory:",
		},
		{
			name:   "successful connection with file database",
			dbPath: filepath.Join(t.TempDir(), "test.db"),
		},
		{
			name:   "empty database path creates in-memory database",
			dbPath: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Initialize(tt.dbPath, false)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, conn)
			assert.NotNil(t, conn.DB)

			if conn != nil {
				conn.Close()
			}
		})
	}
}

func TestDB_Close(t *testing.T) {
	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	require.NotNil(t, conn)

	err = conn.Close()
	assert.NoError(t, err)

	err = conn.HealthCheck()
	assert.Error(t, err, "HealthCheck should fail after database is closed")
}

func TestDB_HealthCheck(t *testing.T) {
	tests := []struct {
		name      string
		setupConn func() (*DB, func())
		wantErr   bool
	}{
		{
			name: "healthy connection",
			setupConn: func() (*DB, func()) {
				conn, _ := Initialize(":memory:", false)
				return conn, func() {
					if conn != nil {
						conn.Close()
					}
				}
			},
			wantErr: false,
		},
		{
			name: "closed connection",
			setupConn: func() (*DB, func()) {
				conn, _ := Initialize(":memory:", false)
				conn.Close()
				return conn, func() {}
			},
			wantErr: true,
		},
		{
			name: "nil connection",
			setupConn: func() (*DB, func()) {
				return nil, func() {}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, cleanup := tt.setupConn()
			defer cleanup()

			err := conn.HealthCheck()

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDB_AutoMigrate(t *testing.T) {
	type TestModel struct {
		gorm.Model
		Name string
	}

	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	require.NotNil(t, conn)
	defer conn.Close()

	err = conn.AutoMigrate(&TestModel{})
	assert.NoError(t, err)

	var count int64
	err = conn.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='test_models'").Scan(&count).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDB_Transaction(t *testing.T) {
	type TestRecord struct {
		gorm.Model
		Value string
	}

	conn, err := Initialize(":memory:", false)
	require.NoError(t, err)
	require.NotNil(t, conn)
	defer conn.Close()

	err = conn.AutoMigrate(&TestRecord{})
	require.NoError(t, err)

	t.Run("successful transaction", func(t *testing.T) {
		err := conn.DB.Transaction(func(tx *gorm.DB) error {
			for i := 0; i < 3; i++ {
				record := TestRecord{Value: "test"}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
			return nil
		})

		assert.NoError(t, err)

		var count int64
		conn.DB.Model(&TestRecord{}).Count(&count)
		assert.Equal(t, int64(3), count)
	})

	t.Run("failed transaction rollback", func(t *testing.T) {
		var countBefore int64
		conn.DB.Model(&TestRecord{}).Count(&countBefore)

		err := conn.DB.Transaction(func(tx *gorm.DB) error {
			record := TestRecord{Value: "rollback-test"}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
			return gorm.ErrInvalidTransaction
		})

		assert.Error(t, err)

		var countAfter int64
		conn.DB.Model(&TestRecord{}).Count(&countAfter)
		assert.Equal(t, countBefore, countAfter)
	})
}

func TestInitializeWithMigrations(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func()
		wantErr   bool
		errMsg    string
	}{
		{
			name: "successful initialization with valid config",
			setupFunc: func() {
				viper.Reset()
				viper.Set("database.path", ":memory:")
				viper.Set("database.verbose", false)
			},
		},
		{
			name: "error when database path not configured",
			setupFunc: func() {
				viper.Reset()
			},
			wantErr: true,
			errMsg:  "database path is not configured",
		},
		{
			name: "successful initialization with file database",
			setupFunc: func() {
				viper.Reset()
				viper.Set("database.path", filepath.Join(t.TempDir(), "test.db"))
				viper.Set("database.verbose", false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupFunc()

			db, err := InitializeWithMigrations()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				assert.Nil(t, db)
				return
			}

			assert.NoError(t, err)
			require.NotNil(t, db)

			// Migrations must create the application tables.
			for _, table := range []string{"transcripts", "jobs"} {
				var count int64
				err = db.DB.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count).Error
				assert.NoError(t, err)
				assert.Equal(t, int64(1), count, "%s table should exist", table)
			}

			db.Close()
		})
	}
}
