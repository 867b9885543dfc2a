package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/internal/db"
	"rental-backend/internal/models"
)

type PropertyRepository struct {
	DB *pgxpool.Pool
}

func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{DB: pool}
}

const propertyColumns = `id, owner_id, name, address, price_per_month, is_available, status,
	accepted_payment_methods, wallet_name, wallet_number, bank_name, bank_account_number,
	created_at, updated_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var (
		p       models.Property
		methods []string
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.PricePerMonth, &p.IsAvailable, &p.Status,
		&methods, &p.WalletName, &p.WalletNumber, &p.BankName, &p.BankAccountNumber,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AcceptedPaymentMethods = make([]models.PaymentMethod, 0, len(methods))
	for _, m := range methods {
		p.AcceptedPaymentMethods = append(p.AcceptedPaymentMethods, models.PaymentMethod(m))
	}
	return &p, nil
}

func methodStrings(methods []models.PaymentMethod) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}

// Create inserts a listing. New listings always start pending.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) error {
	if p.Status == "" {
		p.Status = models.PropertyPending
	}
	return db.Conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO properties(owner_id, name, address, price_per_month, is_available, status,
			accepted_payment_methods, wallet_name, wallet_number, bank_name, bank_account_number)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		p.OwnerID, p.Name, p.Address, int64(p.PricePerMonth), p.IsAvailable, string(p.Status),
		methodStrings(p.AcceptedPaymentMethods), p.WalletName, p.WalletNumber, p.BankName, p.BankAccountNumber,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PropertyRepository) Get(ctx context.Context, id int) (*models.Property, error) {
	p, err := scanProperty(db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "property")
	}
	return p, nil
}

// List returns properties matching the filter, oldest first
func (r *PropertyRepository) List(ctx context.Context, f models.PropertyFilter) ([]*models.Property, error) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Bookable {
		conds = append(conds, "status='approved' AND is_available")
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

// SetAvailability toggles whether the owner accepts new bookings
func (r *PropertyRepository) SetAvailability(ctx context.Context, id int, available bool) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE properties SET is_available=$1, updated_at=NOW() WHERE id=$2`, available, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "property")
	}
	return nil
}

// UpdateStatus records a listing review outcome
func (r *PropertyRepository) UpdateStatus(ctx context.Context, id int, status models.PropertyStatus) error {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE properties SET status=$1, updated_at=NOW() WHERE id=$2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(pgx.ErrNoRows, "property")
	}
	return nil
}
