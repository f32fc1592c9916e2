package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE reservations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithinTx(context.Background(), db, func(tx *sql.Tx) error {
		return NewReservationRepo(db).SetStatusTx(context.Background(), tx, 1, model.StatusPaid)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithinTx(context.Background(), db, func(*sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockSeatsUsesForUpdate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, room_id, row_label, seat_number\s+FROM seats\s+WHERE room_id = \? AND id IN \(\?,\?\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(uint64(3), uint64(11), uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "row_label", "seat_number"}).
			AddRow(11, 3, "F", "1").AddRow(12, 3, "F", "2"))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	seats, err := NewSeatRepo(db).LockByIDsTx(context.Background(), tx, 3, []uint64{11, 12})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	require.Len(t, seats, 2)
	assert.Equal(t, "F2", seats[1].Label())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchMapsDuplicateKey(t *testing.T) {
	db, mock := newMock(t)
	uid := uint64(9)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	rs := []model.Reservation{
		{ShowtimeID: 1, SeatID: 11, PriceCents: 800, UserID: &uid, Status: model.StatusReserved, CreatedAt: created},
		{ShowtimeID: 1, SeatID: 12, PriceCents: 800, UserID: &uid, Status: model.StatusReserved, CreatedAt: created},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(1), uint64(11), uint32(800), uint64(9), "", "", "RESERVED", created).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1-12'"})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = NewReservationRepo(db).CreateBatchTx(context.Background(), tx, rs)
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBatchWalkInHasNullUser(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(1), uint64(11), uint32(800), nil, "Rossi", "", "RESERVED", created).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	var out []model.Reservation
	err := WithinTx(context.Background(), db, func(tx *sql.Tx) error {
		var err error
		out, err = NewReservationRepo(db).CreateBatchTx(context.Background(), tx, []model.Reservation{
			{ShowtimeID: 1, SeatID: 11, PriceCents: 800, WalkInName: "Rossi", Status: model.StatusReserved, CreatedAt: created},
		})
		return err
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(7), out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveForUserLocksRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM reservations\s+WHERE showtime_id = \? AND user_id = \? AND status <> 'CANCELLED'\s+FOR UPDATE`).
		WithArgs(uint64(5), uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	n, err := NewReservationRepo(db).CountActiveForUserTx(context.Background(), tx, 5, 9)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, 2, n)
}

func TestOccupiedSeatIDs(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT seat_id FROM reservations").WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(3).AddRow(4))

	got, err := NewReservationRepo(db).OccupiedSeatIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{3: true, 4: true}, got)
}

func TestGetDetailNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM showtimes s").WithArgs(uint64(77)).WillReturnError(sql.ErrNoRows)

	_, err := NewShowtimeRepo(db).GetDetail(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShowtimeCreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO showtimes").WithArgs(uint64(2), uint64(1), start).
		WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = NewShowtimeRepo(db).CreateTx(context.Background(), tx, &model.Showtime{MovieID: 2, RoomID: 1, StartsAt: start})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, tx.Rollback())
}

func TestSearchByTitleEscapesWildcards(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("LIKE").WithArgs(`%100\%%`, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewMovieRepo(db).SearchByTitle(context.Background(), "100%", 5)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM users WHERE id=").WithArgs(uint64(3)).WillReturnError(sql.ErrNoRows)

	_, err := NewUserRepo(db).GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserGetByEmailParsesRole(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM users WHERE email=").WithArgs("anna@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "is_member", "phone", "is_active", "created_at", "updated_at"}).
			AddRow(3, "anna@example.com", "x", "TICKET_OFFICE", true, "", true, now, now))

	u, err := NewUserRepo(db).GetByEmail(context.Background(), " Anna@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTicketOffice, u.Role)
	assert.True(t, u.Member)
}

func TestValidateRefreshRejectsExpired(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM refresh_tokens").WithArgs("h").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(4, now, nil))

	_, err := NewTokenRepo(db).ValidateRefresh(context.Background(), "h", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomCreateInsertsSeats(t *testing.T) {
	db, mock := newMock(t)
	seats := model.RoomLayout{Name: "Sala 3", Rows: 2, SeatsPerRow: 2}.Seats()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO rooms \(name\) VALUES \(\?\)`).WithArgs("Sala 3").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(`INSERT INTO seats \(room_id, row_label, seat_number\) VALUES \(\?, \?, \?\),\(\?, \?, \?\),\(\?, \?, \?\),\(\?, \?, \?\)`).
		WithArgs(uint64(3), "A", "1", uint64(3), "A", "2", uint64(3), "B", "1", uint64(3), "B", "2").
		WillReturnResult(sqlmock.NewResult(1, 4))
	mock.ExpectCommit()

	id, err := NewRoomRepo(db).Create(context.Background(), "Sala 3", seats)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomCreateDuplicateName(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO rooms").WillReturnError(&mysql.MySQLError{Number: 1062})
	mock.ExpectRollback()

	_, err := NewRoomRepo(db).Create(context.Background(), "Sala 1", nil)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMovieDeleteRestricted(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("DELETE FROM movies").WithArgs(uint64(4)).
		WillReturnError(&mysql.MySQLError{Number: 1451})

	err := NewMovieRepo(db).Delete(context.Background(), 4)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMovieLockModes(t *testing.T) {
	cols := []string{"id", "title", "director", "genre", "description", "runtime_min",
		"release_date", "local_release", "programming_start", "festival", "created_at", "updated_at"}
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM movies m WHERE m.id = \? FOR UPDATE`).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, "Dune", "", "", "", 155, d, d, d, false, d, d))
	mock.ExpectQuery(`FROM movies m WHERE m.id = \? LOCK IN SHARE MODE`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectRollback()

	repo := NewMovieRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)
	m, err := repo.LockTx(context.Background(), tx, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 155, m.RuntimeMin)
	_, err = repo.LockTx(context.Background(), tx, 5, false)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByMovieFromTx(t *testing.T) {
	from := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM showtimes\s+WHERE movie_id = \? AND starts_at >= \? ORDER BY starts_at`).
		WithArgs(uint64(4), from).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "room_id", "starts_at", "created_at"}).
			AddRow(7, 4, 1, from.Add(12*time.Hour), from).
			AddRow(8, 4, 2, from.Add(14*time.Hour), from))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	list, err := NewShowtimeRepo(db).ListByMovieFromTx(context.Background(), tx, 4, from)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.Len(t, list, 2)
	assert.Equal(t, uint64(2), list[1].RoomID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
