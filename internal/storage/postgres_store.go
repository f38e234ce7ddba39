package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/example/ride-booking/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *PostgresStore) Close() error                   { return p.db.Close() }

// Migrate applies migrations/*.sql in lexicographic order, one transaction
// per file. Files are idempotent so Migrate can run on every start.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s failed: %w", name, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (p *PostgresStore) stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := p.now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// users

const userColumns = `id, name, email, phone, picture, role, is_blocked, is_deleted, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var phone, picture sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &phone, &picture, &u.Role, &u.IsBlocked, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.Phone, u.Picture = phone.String, picture.String
	return &u, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	p.stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	_, err := p.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		u.ID, u.Name, u.Email, nullString(u.Phone), nullString(u.Picture), u.Role, u.IsBlocked, u.IsDeleted, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=lower($1)`, email))
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SetUserBlocked(ctx context.Context, id string, blocked bool) (*models.User, error) {
	return scanUser(p.db.QueryRowContext(ctx,
		`UPDATE users SET is_blocked=$2, updated_at=$3 WHERE id=$1 RETURNING `+userColumns,
		id, blocked, p.now().UTC()))
}

func (p *PostgresStore) SetUserRole(ctx context.Context, id string, role models.Role) error {
	res, err := p.db.ExecContext(ctx, `UPDATE users SET role=$2, updated_at=$3 WHERE id=$1`, id, role, p.now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// drivers

const driverColumns = `id, user_id, vehicle_number, vehicle_model, license_number, application_status,
	rejection_reason, is_online, is_suspended, earnings, created_at, updated_at`

func scanDriver(row rowScanner) (*models.DriverProfile, error) {
	var d models.DriverProfile
	if err := row.Scan(&d.ID, &d.UserID, &d.VehicleNumber, &d.VehicleModel, &d.LicenseNumber, &d.ApplicationStatus,
		&d.RejectionReason, &d.IsOnline, &d.IsSuspended, &d.Earnings, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (p *PostgresStore) CreateDriver(ctx context.Context, d *models.DriverProfile) error {
	p.stamp(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	_, err := p.db.ExecContext(ctx, `INSERT INTO driver_profiles(`+driverColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		d.ID, d.UserID, d.VehicleNumber, d.VehicleModel, d.LicenseNumber, d.ApplicationStatus,
		d.RejectionReason, d.IsOnline, d.IsSuspended, d.Earnings, d.CreatedAt, d.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetDriver(ctx context.Context, id string) (*models.DriverProfile, error) {
	return scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM driver_profiles WHERE id=$1`, id))
}

func (p *PostgresStore) GetDriverByUser(ctx context.Context, userID string) (*models.DriverProfile, error) {
	return scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM driver_profiles WHERE user_id=$1`, userID))
}

func (p *PostgresStore) ListDrivers(ctx context.Context) ([]models.DriverProfile, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+driverColumns+` FROM driver_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.DriverProfile, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SetDriverOnline(ctx context.Context, id string, online bool) (*models.DriverProfile, error) {
	return scanDriver(p.db.QueryRowContext(ctx,
		`UPDATE driver_profiles SET is_online=$2, updated_at=$3 WHERE id=$1 RETURNING `+driverColumns,
		id, online, p.now().UTC()))
}

func (p *PostgresStore) SetDriverSuspended(ctx context.Context, id string, suspended bool) (*models.DriverProfile, error) {
	return scanDriver(p.db.QueryRowContext(ctx,
		`UPDATE driver_profiles SET is_suspended=$2, updated_at=$3 WHERE id=$1 RETURNING `+driverColumns,
		id, suspended, p.now().UTC()))
}

func (p *PostgresStore) DecideApplication(ctx context.Context, id string, status models.ApplicationStatus, reason string) (*models.DriverProfile, error) {
	d, err := scanDriver(p.db.QueryRowContext(ctx,
		`UPDATE driver_profiles SET application_status=$2, rejection_reason=$3, updated_at=$4
		 WHERE id=$1 AND application_status='PENDING' RETURNING `+driverColumns,
		id, status, reason, p.now().UTC()))
	if errors.Is(err, ErrNotFound) {
		return nil, p.missingOrConflict(ctx, `SELECT 1 FROM driver_profiles WHERE id=$1`, id)
	}
	return d, err
}

// missingOrConflict tells a conditional update that matched nothing apart
// from one whose target row does not exist.
func (p *PostgresStore) missingOrConflict(ctx context.Context, query, id string) error {
	var one int
	err := p.db.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

// rides

const rideColumns = `id, rider_id, driver_id, pickup_address, destination_address, price, status,
	requested_at, accepted_at, picked_up_at, completed_at, cancelled_at, cancel_reason, payment_ref,
	created_at, updated_at`

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var driver sql.NullString
	var accepted, picked, completed, cancelled sql.NullTime
	if err := row.Scan(&r.ID, &r.RiderID, &driver, &r.PickupAddress, &r.DestinationAddress, &r.Price, &r.Status,
		&r.Timestamps.RequestedAt, &accepted, &picked, &completed, &cancelled, &r.CancelReason, &r.PaymentRef,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	r.DriverID = driver.String
	r.Timestamps.AcceptedAt = timePtr(accepted)
	r.Timestamps.PickedUpAt = timePtr(picked)
	r.Timestamps.CompletedAt = timePtr(completed)
	r.Timestamps.CancelledAt = timePtr(cancelled)
	r.Rejections = []models.Rejection{}
	return &r, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// attachRejections loads rejection lists for rides in one query.
func attachRejections(ctx context.Context, q querier, rides []*models.Ride) error {
	if len(rides) == 0 {
		return nil
	}
	ids := make([]string, len(rides))
	byID := make(map[string]*models.Ride, len(rides))
	for i, r := range rides {
		ids[i] = r.ID
		byID[r.ID] = r
	}
	rows, err := q.QueryContext(ctx,
		`SELECT ride_id, driver_id, reason, rejected_at FROM ride_rejections WHERE ride_id = ANY($1) ORDER BY seq`,
		pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rideID string
		var rej models.Rejection
		if err := rows.Scan(&rideID, &rej.DriverID, &rej.Reason, &rej.Timestamp); err != nil {
			return err
		}
		if r, ok := byID[rideID]; ok {
			r.Rejections = append(r.Rejections, rej)
		}
	}
	return rows.Err()
}

func (p *PostgresStore) CreateRide(ctx context.Context, r *models.Ride) error {
	p.stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if r.Rejections == nil {
		r.Rejections = []models.Rejection{}
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(`+rideColumns+`)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.RiderID, nullString(r.DriverID), r.PickupAddress, r.DestinationAddress, r.Price, r.Status,
		r.Timestamps.RequestedAt, nullTime(r.Timestamps.AcceptedAt), nullTime(r.Timestamps.PickedUpAt),
		nullTime(r.Timestamps.CompletedAt), nullTime(r.Timestamps.CancelledAt), r.CancelReason, r.PaymentRef,
		r.CreatedAt, r.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	r, err := scanRide(p.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if err := attachRejections(ctx, p.db, []*models.Ride{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresStore) ListRides(ctx context.Context, f RideFilter) ([]models.Ride, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RiderID != "" {
		add("rider_id=$%d", f.RiderID)
	}
	if f.DriverID != "" {
		add("driver_id=$%d", f.DriverID)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.NotRejectedBy != "" {
		add("NOT EXISTS (SELECT 1 FROM ride_rejections rr WHERE rr.ride_id=rides.id AND rr.driver_id=$%d)", f.NotRejectedBy)
	}
	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY requested_at DESC`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ptrs []*models.Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := attachRejections(ctx, p.db, ptrs); err != nil {
		return nil, err
	}
	out := make([]models.Ride, len(ptrs))
	for i, r := range ptrs {
		out[i] = *r
	}
	return out, nil
}

// conditionalRide runs a guarded UPDATE ... RETURNING and resolves a miss into
// ErrNotFound or ErrConflict.
func (p *PostgresStore) conditionalRide(ctx context.Context, id, query string, args ...any) (*models.Ride, error) {
	r, err := scanRide(p.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, p.missingOrConflict(ctx, `SELECT 1 FROM rides WHERE id=$1`, id)
	}
	if err != nil {
		return nil, err
	}
	if err := attachRejections(ctx, p.db, []*models.Ride{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresStore) AcceptRide(ctx context.Context, id, driverID string, at time.Time) (*models.Ride, error) {
	return p.conditionalRide(ctx, id,
		`UPDATE rides SET driver_id=$2, status='ACCEPTED', accepted_at=$3, updated_at=$4
		 WHERE id=$1 AND status='REQUESTED' RETURNING `+rideColumns,
		id, driverID, at, p.now().UTC())
}

func (p *PostgresStore) RejectRide(ctx context.Context, id string, rej models.Rejection) (*models.Ride, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// row lock serialises the append against a concurrent accept or cancel
	var status models.RideStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM rides WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		return nil, mapErr(err)
	}
	if status != models.RideRequested {
		return nil, ErrConflict
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ride_rejections(ride_id, driver_id, reason, rejected_at) VALUES($1,$2,$3,$4)`,
		id, rej.DriverID, rej.Reason, rej.Timestamp); err != nil {
		return nil, err
	}
	r, err := scanRide(tx.QueryRowContext(ctx,
		`UPDATE rides SET updated_at=$2 WHERE id=$1 RETURNING `+rideColumns, id, p.now().UTC()))
	if err != nil {
		return nil, err
	}
	if err := attachRejections(ctx, tx, []*models.Ride{r}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresStore) AdvanceRide(ctx context.Context, id, driverID string, from, to models.RideStatus, at time.Time) (*models.Ride, error) {
	if !from.HasDriver() || !to.HasDriver() {
		return nil, ErrConflict
	}
	set := `status=$4, updated_at=$5`
	args := []any{id, driverID, from, to, p.now().UTC()}
	switch to {
	case models.RidePickedUp:
		set += `, picked_up_at=$6`
		args = append(args, at)
	case models.RideCompleted:
		set += `, completed_at=$6`
		args = append(args, at)
	}
	query := `UPDATE rides SET ` + set + ` WHERE id=$1 AND driver_id=$2 AND status=$3 RETURNING ` + rideColumns

	if to != models.RideCompleted {
		return p.conditionalRide(ctx, id, query, args...)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := scanRide(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		_ = tx.Rollback()
		return nil, p.missingOrConflict(ctx, `SELECT 1 FROM rides WHERE id=$1`, id)
	}
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE driver_profiles SET earnings = round((earnings + $2)::numeric, 2)::double precision, updated_at=$3 WHERE id=$1`,
		driverID, r.Price, at)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	if err := attachRejections(ctx, tx, []*models.Ride{r}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresStore) CancelRide(ctx context.Context, id, riderID, reason string, at time.Time) (*models.Ride, error) {
	return p.conditionalRide(ctx, id,
		`UPDATE rides SET status='CANCELLED', cancel_reason=$3, cancelled_at=$4, updated_at=$5
		 WHERE id=$1 AND rider_id=$2 AND status='REQUESTED' RETURNING `+rideColumns,
		id, riderID, reason, at, p.now().UTC())
}

func (p *PostgresStore) SetPaymentRef(ctx context.Context, id, ref string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET payment_ref=$2 WHERE id=$1`, id, ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ratings

const ratingColumns = `id, ride_id, rater_id, ratee_id, rating_type, score, comment, is_active, created_at, updated_at`

func scanRating(row rowScanner) (*models.Rating, error) {
	var r models.Rating
	if err := row.Scan(&r.ID, &r.RideID, &r.RaterID, &r.RateeID, &r.Type, &r.Score, &r.Comment, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (p *PostgresStore) CreateRating(ctx context.Context, r *models.Rating) error {
	p.stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	_, err := p.db.ExecContext(ctx, `INSERT INTO ratings(`+ratingColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.RideID, r.RaterID, r.RateeID, r.Type, r.Score, r.Comment, r.IsActive, r.CreatedAt, r.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetRating(ctx context.Context, id string) (*models.Rating, error) {
	return scanRating(p.db.QueryRowContext(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE id=$1`, id))
}

func (p *PostgresStore) ListRatings(ctx context.Context, f RatingFilter) ([]models.Rating, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+ratingColumns+` FROM ratings
		WHERE is_active AND ($1='' OR rater_id=$1) AND ($2='' OR ratee_id=$2)
		ORDER BY created_at DESC`, f.RaterID, f.RateeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Rating, 0)
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateRating(ctx context.Context, r *models.Rating) error {
	r.UpdatedAt = p.now().UTC()
	res, err := p.db.ExecContext(ctx, `UPDATE ratings SET score=$2, comment=$3, is_active=$4, updated_at=$5 WHERE id=$1`,
		r.ID, r.Score, r.Comment, r.IsActive, r.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) RatingSummary(ctx context.Context, rateeID string) (models.RatingSummary, error) {
	sum := models.RatingSummary{Distribution: []int{}}
	rows, err := p.db.QueryContext(ctx, `SELECT score FROM ratings WHERE is_active AND ratee_id=$1 ORDER BY created_at`, rateeID)
	if err != nil {
		return sum, err
	}
	defer rows.Close()
	total := 0
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return sum, err
		}
		total += score
		sum.Distribution = append(sum.Distribution, score)
	}
	if err := rows.Err(); err != nil {
		return sum, err
	}
	sum.TotalRatings = len(sum.Distribution)
	if sum.TotalRatings > 0 {
		sum.AverageRating = math.Round(float64(total)/float64(sum.TotalRatings)*10) / 10
	}
	return sum, nil
}

// payment methods

const paymentColumns = `id, user_id, type, card_number, card_holder_name, expiry_month, expiry_year,
	mobile_number, bank_name, gateway_customer_id, gateway_method_id, is_default, is_active, created_at, updated_at`

func scanPaymentMethod(row rowScanner) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := row.Scan(&pm.ID, &pm.UserID, &pm.Type, &pm.CardNumber, &pm.CardHolderName, &pm.ExpiryMonth, &pm.ExpiryYear,
		&pm.MobileNumber, &pm.BankName, &pm.GatewayCustomerID, &pm.GatewayMethodID,
		&pm.IsDefault, &pm.IsActive, &pm.CreatedAt, &pm.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &pm, nil
}

func (p *PostgresStore) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	p.stamp(&pm.ID, &pm.CreatedAt, &pm.UpdatedAt)
	_, err := p.db.ExecContext(ctx, `INSERT INTO payment_methods(`+paymentColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		pm.ID, pm.UserID, pm.Type, pm.CardNumber, pm.CardHolderName, pm.ExpiryMonth, pm.ExpiryYear,
		pm.MobileNumber, pm.BankName, pm.GatewayCustomerID, pm.GatewayMethodID, pm.IsDefault, pm.IsActive, pm.CreatedAt, pm.UpdatedAt)
	return mapErr(err)
}

func (p *PostgresStore) GetPaymentMethod(ctx context.Context, id string) (*models.PaymentMethod, error) {
	return scanPaymentMethod(p.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_methods WHERE id=$1`, id))
}

func (p *PostgresStore) ListPaymentMethods(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payment_methods
		WHERE user_id=$1 AND is_active ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.PaymentMethod, 0)
	for rows.Next() {
		pm, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pm)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	pm.UpdatedAt = p.now().UTC()
	res, err := p.db.ExecContext(ctx, `UPDATE payment_methods SET card_holder_name=$2, expiry_month=$3, expiry_year=$4,
		mobile_number=$5, bank_name=$6, is_default=$7, is_active=$8, updated_at=$9 WHERE id=$1`,
		pm.ID, pm.CardHolderName, pm.ExpiryMonth, pm.ExpiryYear, pm.MobileNumber, pm.BankName, pm.IsDefault, pm.IsActive, pm.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ClearDefaultPaymentMethods(ctx context.Context, userID, exceptID string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE payment_methods SET is_default=FALSE, updated_at=$3
		WHERE user_id=$1 AND id<>$2 AND is_default`, userID, exceptID, p.now().UTC())
	return err
}

// emergency contacts

const contactColumns = `id, user_id, name, phone, relationship, is_primary, is_active, created_at, updated_at`

func scanContact(row rowScanner) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Relationship, &c.IsPrimary, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (p *PostgresStore) CreateContact(ctx context.Context, c *models.EmergencyContact, limit int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// the user row lock serialises concurrent inserts for one user
	var uid string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, c.UserID).Scan(&uid); err != nil {
		return mapErr(err)
	}
	var active int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM emergency_contacts WHERE user_id=$1 AND is_active`, c.UserID).Scan(&active); err != nil {
		return err
	}
	if active >= limit {
		return ErrLimit
	}
	if active == 0 {
		c.IsPrimary = true
	}
	p.stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if _, err := tx.ExecContext(ctx, `INSERT INTO emergency_contacts(`+contactColumns+`) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.UserID, c.Name, c.Phone, c.Relationship, c.IsPrimary, c.IsActive, c.CreatedAt, c.UpdatedAt); err != nil {
		return mapErr(err)
	}
	return tx.Commit()
}

func (p *PostgresStore) GetContact(ctx context.Context, id string) (*models.EmergencyContact, error) {
	return scanContact(p.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM emergency_contacts WHERE id=$1`, id))
}

func (p *PostgresStore) ListContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM emergency_contacts
		WHERE user_id=$1 AND is_active ORDER BY is_primary DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.EmergencyContact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpdateContact(ctx context.Context, c *models.EmergencyContact) error {
	c.UpdatedAt = p.now().UTC()
	res, err := p.db.ExecContext(ctx, `UPDATE emergency_contacts SET name=$2, phone=$3, relationship=$4,
		is_primary=$5, is_active=$6, updated_at=$7 WHERE id=$1`,
		c.ID, c.Name, c.Phone, c.Relationship, c.IsPrimary, c.IsActive, c.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ClearPrimaryContacts(ctx context.Context, userID, exceptID string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE emergency_contacts SET is_primary=FALSE, updated_at=$3
		WHERE user_id=$1 AND id<>$2 AND is_primary`, userID, exceptID, p.now().UTC())
	return err
}

// settings

func (p *PostgresStore) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	var s models.UserSettings
	var notif, privacy []byte
	err := p.db.QueryRowContext(ctx, `SELECT user_id, notifications, privacy, language, currency, timezone, created_at, updated_at
		FROM user_settings WHERE user_id=$1`, userID).
		Scan(&s.UserID, &notif, &privacy, &s.Language, &s.Currency, &s.Timezone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(notif, &s.Notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	if err := json.Unmarshal(privacy, &s.Privacy); err != nil {
		return nil, fmt.Errorf("decode privacy: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) SaveSettings(ctx context.Context, s *models.UserSettings) error {
	notif, err := json.Marshal(s.Notifications)
	if err != nil {
		return err
	}
	privacy, err := json.Marshal(s.Privacy)
	if err != nil {
		return err
	}
	now := p.now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return p.db.QueryRowContext(ctx, `INSERT INTO user_settings(user_id, notifications, privacy, language, currency, timezone, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id) DO UPDATE SET notifications=EXCLUDED.notifications, privacy=EXCLUDED.privacy,
			language=EXCLUDED.language, currency=EXCLUDED.currency, timezone=EXCLUDED.timezone, updated_at=EXCLUDED.updated_at
		RETURNING created_at`,
		s.UserID, notif, privacy, s.Language, s.Currency, s.Timezone, s.CreatedAt, s.UpdatedAt).Scan(&s.CreatedAt)
}

func (p *PostgresStore) DeleteSettings(ctx context.Context, userID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id=$1`, userID)
	return err
}

// reports

func (p *PostgresStore) Overview(ctx context.Context, from, to time.Time) (models.Overview, error) {
	var o models.Overview
	err := p.db.QueryRowContext(ctx, `SELECT
			count(*),
			count(*) FILTER (WHERE role='RIDER'),
			count(*) FILTER (WHERE role='DRIVER'),
			count(*) FILTER (WHERE is_blocked)
		FROM users WHERE created_at BETWEEN $1 AND $2`, from, to).
		Scan(&o.Users.Total, &o.Users.Riders, &o.Users.Drivers, &o.Users.Blocked)
	if err != nil {
		return o, err
	}
	err = p.db.QueryRowContext(ctx, `SELECT
			count(*) FILTER (WHERE application_status='APPROVED'),
			count(*) FILTER (WHERE application_status='PENDING')
		FROM driver_profiles WHERE created_at BETWEEN $1 AND $2`, from, to).
		Scan(&o.Users.ApprovedDrivers, &o.Users.PendingDrivers)
	if err != nil {
		return o, err
	}
	err = p.db.QueryRowContext(ctx, `SELECT
			count(*),
			count(*) FILTER (WHERE status='COMPLETED'),
			count(*) FILTER (WHERE status='CANCELLED'),
			count(*) FILTER (WHERE status NOT IN ('COMPLETED','CANCELLED')),
			coalesce(sum(price) FILTER (WHERE status='COMPLETED'), 0)
		FROM rides WHERE created_at BETWEEN $1 AND $2`, from, to).
		Scan(&o.Rides.Total, &o.Rides.Completed, &o.Rides.Cancelled, &o.Rides.Active, &o.Earnings.Total)
	if err != nil {
		return o, err
	}
	o.Earnings.Total = roundCents(o.Earnings.Total)
	return o, nil
}
