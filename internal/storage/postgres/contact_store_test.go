package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

func TestSaveContactsCountsNewRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContactStoreWithPool(mock, "contacts")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	records := []scraper.CompanyRecord{
		{Name: "Acme", Country: "France", Email: "info@acme.test"},
		{Name: "Bodega", Country: "Spain", Email: "sales@bodega.test"},
		{Name: "No Email", Country: "Italy"},
	}

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("info@acme.test", "Acme", "France", "run-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("sales@bodega.test", "Bodega", "Spain", "run-1", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.SaveContacts(context.Background(), "run-1", records, now)
	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveContactsStopsOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContactStoreWithPool(mock, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO contacts").
		WithArgs("info@acme.test", "Acme", "France", "run-2", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err = store.SaveContacts(context.Background(), "run-2", []scraper.CompanyRecord{
		{Name: "Acme", Country: "France", Email: "info@acme.test"},
		{Name: "Bodega", Country: "Spain", Email: "sales@bodega.test"},
	}, time.Now())
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContactStoreWithPool(mock, "wine_contacts")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS wine_contacts").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableNameValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewContactStoreWithPool(mock, "contacts; DROP TABLE x")
	require.Error(t, err)
	_, err = NewContactStoreWithPool(nil, "contacts")
	require.Error(t, err)
	_, err = NewContactStore(context.Background(), ContactStoreConfig{})
	require.Error(t, err)
}
