package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	return gormDB, mock
}

func TestQueryBusinessList(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectQuery(`SELECT \* FROM "business"`).
		WillReturnRows(sqlmock.NewRows([]string{"guid", "business_uid", "notify_url", "timestamp"}).
			AddRow(uuid.New(), "biz-1", "http://callback", 123456))

	db := NewBusinessDB(gormDB)
	bizList, err := db.QueryBusinessList()

	assert.NoError(t, err)
	assert.Len(t, bizList, 1)
	assert.Equal(t, "biz-1", bizList[0].BusinessUid)
}

func TestQueryBusinessByUuid(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectQuery(`SELECT \* FROM "business" WHERE "business_uid" = \$1`).
		WithArgs("biz-uuid", 1).
		WillReturnRows(sqlmock.NewRows([]string{"guid", "business_uid", "notify_url", "timestamp"}).
			AddRow(uuid.New(), "biz-uuid", "http://callback", 654321))

	db := NewBusinessDB(gormDB)
	biz, err := db.QueryBusinessByUuid("biz-uuid")

	assert.NoError(t, err)
	assert.NotNil(t, biz)
	assert.Equal(t, "biz-uuid", biz.BusinessUid)
}

func TestQueryBusinessByUuidNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectQuery(`SELECT \* FROM "business"`).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"guid", "business_uid", "notify_url", "timestamp"}))

	db := NewBusinessDB(gormDB)
	biz, err := db.QueryBusinessByUuid("missing")

	assert.NoError(t, err)
	assert.Nil(t, biz)
}

func TestStoreBusiness(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	defer func() {
		db, _ := gormDB.DB()
		db.Close()
	}()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "business"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	db := NewBusinessDB(gormDB)
	err := db.StoreBusiness(&Business{
		GUID:        uuid.New(),
		BusinessUid: "biz-2",
		NotifyUrl:   "http://notify",
		Timestamp:   1724660000,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
