package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/erazemk/soseska/internal/model"
)

const dialect = "sqlite3"

// ResourceFilter narrows ListResources. Zero values match everything.
type ResourceFilter struct {
	ApartmentID int64
	OwnerID     int64
	Status      string
	Category    string
	Limit       uint
	Offset      uint
}

func resourceQuery() *goqu.SelectDataset {
	return goqu.Dialect(dialect).
		From(goqu.T("resources").As("r")).
		Join(goqu.T("users").As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("r.owner_id")))).
		LeftJoin(goqu.T("users").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.borrower_id"))))
}

var resourceColumns = []any{
	goqu.I("r.id"), goqu.I("r.title"), goqu.I("r.description"), goqu.I("r.category"),
	goqu.I("r.apartment_id"), goqu.I("r.owner_id"), goqu.I("r.status"), goqu.I("r.borrower_id"),
	goqu.I("r.image_mime"), goqu.I("r.created_at"), goqu.I("r.updated_at"),
	goqu.I("o.name"), goqu.I("o.email"), goqu.I("b.name"), goqu.I("b.email"),
}

func scanResource(s scanner) (*model.Resource, error) {
	r := &model.Resource{}
	var description, imageMime sql.NullString
	var ownerName, ownerEmail, borrowerName, borrowerEmail sql.NullString
	if err := s.Scan(&r.ID, &r.Title, &description, &r.Category,
		&r.ApartmentID, &r.OwnerID, &r.Status, &r.BorrowerID,
		&imageMime, &r.CreatedAt, &r.UpdatedAt,
		&ownerName, &ownerEmail, &borrowerName, &borrowerEmail); err != nil {
		return nil, err
	}
	r.Description = description.String
	r.ImageMime = imageMime.String
	r.Owner = &model.UserRef{ID: r.OwnerID, Name: ownerName.String, Email: ownerEmail.String}
	if r.BorrowerID != nil {
		r.Borrower = &model.UserRef{ID: *r.BorrowerID, Name: borrowerName.String, Email: borrowerEmail.String}
	}
	return r, nil
}

// CreateResource creates an available resource owned by ownerID.
func CreateResource(ctx context.Context, db *sql.DB, title, description, category string, apartmentID, ownerID int64) (*model.Resource, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO resources (title, description, category, apartment_id, owner_id, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, category, apartmentID, ownerID, model.ResourceStatusAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting resource id: %w", err)
	}

	return GetResource(ctx, db, id)
}

// GetResource returns a resource by ID with owner and borrower expanded.
func GetResource(ctx context.Context, db *sql.DB, id int64) (*model.Resource, error) {
	query, args, err := resourceQuery().
		Select(resourceColumns...).
		Where(goqu.I("r.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building resource query: %w", err)
	}

	r, err := scanResource(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting resource: %w", err)
	}
	return r, nil
}

// ListResources returns one page of resources matching f, newest first,
// together with the total number of matches.
func ListResources(ctx context.Context, db *sql.DB, f ResourceFilter) ([]model.Resource, int, error) {
	var where []exp.Expression
	if f.ApartmentID > 0 {
		where = append(where, goqu.I("r.apartment_id").Eq(f.ApartmentID))
	}
	if f.OwnerID > 0 {
		where = append(where, goqu.I("r.owner_id").Eq(f.OwnerID))
	}
	if f.Status != "" {
		where = append(where, goqu.I("r.status").Eq(f.Status))
	}
	if f.Category != "" {
		where = append(where, goqu.I("r.category").Eq(f.Category))
	}

	countSQL, countArgs, err := resourceQuery().
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("building resource count query: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting resources: %w", err)
	}

	ds := resourceQuery().
		Select(resourceColumns...).
		Where(where...).
		Order(goqu.I("r.created_at").Desc(), goqu.I("r.id").Desc())
	if f.Limit > 0 {
		ds = ds.Limit(f.Limit).Offset(f.Offset)
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("building resource list query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing resources: %w", err)
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning resource: %w", err)
		}
		resources = append(resources, *r)
	}
	return resources, total, rows.Err()
}

// UpdateResourceIf moves a resource from one lending state to another in a
// single statement. The write only applies while the stored status and
// borrower still equal from; if they no longer do (or the resource is gone)
// it returns nil, nil.
func UpdateResourceIf(ctx context.Context, db *sql.DB, id int64, from, to model.LendingState) (*model.Resource, error) {
	query, args, err := goqu.Dialect(dialect).
		Update("resources").
		Set(goqu.Record{
			"status":      to.Status,
			"borrower_id": nullableID(to.BorrowerID),
			"updated_at":  goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").Eq(from.Status),
			borrowerIs(from.BorrowerID),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building resource transition: %w", err)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating resource status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking resource update: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	return GetResource(ctx, db, id)
}

func borrowerIs(id *int64) exp.Expression {
	if id == nil {
		return goqu.C("borrower_id").IsNull()
	}
	return goqu.C("borrower_id").Eq(*id)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

// SetResourceImage sets a resource's image data.
func SetResourceImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE resources SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting resource image: %w", err)
	}
	return nil
}

// GetResourceImage returns a resource's image data and MIME type.
func GetResourceImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM resources WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting resource image: %w", err)
	}
	return image, mime.String, nil
}

// Resources exposes the resource table as the persistence side of the
// lending lifecycle.
type Resources struct {
	DB *sql.DB
}

// GetResource returns a resource by ID, or nil if it does not exist.
func (s Resources) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	return GetResource(ctx, s.DB, id)
}

// UpdateResourceIf applies a conditional lending transition.
func (s Resources) UpdateResourceIf(ctx context.Context, id int64, from, to model.LendingState) (*model.Resource, error) {
	return UpdateResourceIf(ctx, s.DB, id, from, to)
}
