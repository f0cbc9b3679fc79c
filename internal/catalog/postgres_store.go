package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresStore implements Store on postgres. Stock adjustments use a
// conditional UPDATE so two concurrent checkouts serialize on the product row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{
		MigrationsTable: "catalog_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT id, name, description, price, image_url, type, brand, stock
	          FROM products WHERE id = $1`

	var p Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Type, &p.Brand, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, q ListQuery) (*Page, error) {
	where, args := buildFilter(q)

	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	orderBy := "name ASC"
	switch q.OrderBy {
	case "price":
		orderBy = "price ASC"
	case "priceDesc":
		orderBy = "price DESC"
	}

	page, size := normalizePaging(q.Page, q.Size)
	listQuery := fmt.Sprintf(
		`SELECT id, name, description, price, image_url, type, brand, stock
		 FROM products%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0, size)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Type, &p.Brand, &p.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return &Page{Items: items, Page: page, Size: size, TotalCount: total}, nil
}

func (s *PostgresStore) AdjustStock(ctx context.Context, id int64, delta int) error {
	return adjustStock(ctx, s.db, id, delta)
}

// AdjustStockTx applies one stock adjustment inside an open transaction, so
// callers can bind several adjustments and related writes into one commit.
func AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	return adjustStock(ctx, tx, id, delta)
}

// DB exposes the underlying handle so collaborators on the same database can
// share the connection pool.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func adjustStock(ctx context.Context, q execer, id int64, delta int) error {
	// The WHERE clause guarantees the row never goes negative; zero rows
	// affected means either a missing product or insufficient stock.
	query := `UPDATE products SET stock = stock + $2 WHERE id = $1 AND stock + $2 >= 0`

	res, err := q.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := q.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product existence: %w", err)
		}
		if !exists {
			return ErrProductNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

func (s *PostgresStore) SetStock(ctx context.Context, id int64, quantity int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE products SET stock = $2 WHERE id = $1", id, quantity)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// InsertProduct is used by seeding.
func (s *PostgresStore) InsertProduct(ctx context.Context, p *Product) error {
	query := `INSERT INTO products (id, name, description, price, image_url, type, brand, stock)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Type, p.Brand, p.Stock)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Count reports how many products exist, used to decide whether to seed.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func buildFilter(q ListQuery) (string, []any) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if q.Search != "" {
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	if len(q.Brands) > 0 {
		args = append(args, pqStringArray(q.Brands))
		clauses = append(clauses, fmt.Sprintf("brand = ANY($%d)", len(args)))
	}
	if len(q.Types) > 0 {
		args = append(args, pqStringArray(q.Types))
		clauses = append(clauses, fmt.Sprintf("type = ANY($%d)", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func pqStringArray(values []string) any {
	return pq.Array(values)
}
