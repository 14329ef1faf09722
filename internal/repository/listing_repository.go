package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"studenthub/internal/model"
)

type table struct {
	name    string
	columns string
	insert  string
	update  string
}

var tables = map[model.Kind]table{
	model.KindHostel: {
		name:    "hostels",
		columns: "id, name, description, city, state, address, hostel_type, price_range, monthly_rent, rating, image_url, contact_phone, created_at",
		insert: `INSERT INTO hostels
			(id, name, description, city, state, address, hostel_type, price_range, monthly_rent, rating, image_url, contact_phone, created_at)
		VALUES
			(:id, :name, :description, :city, :state, :address, :hostel_type, :price_range, :monthly_rent, :rating, :image_url, :contact_phone, :created_at)`,
		update: `UPDATE hostels SET
			name = :name, description = :description, city = :city, state = :state, address = :address,
			hostel_type = :hostel_type, price_range = :price_range, monthly_rent = :monthly_rent,
			image_url = :image_url, contact_phone = :contact_phone
		WHERE id = :id`,
	},
	model.KindRestaurant: {
		name:    "restaurants",
		columns: "id, name, description, city, state, address, cuisine, price_range, rating, image_url, created_at",
		insert: `INSERT INTO restaurants
			(id, name, description, city, state, address, cuisine, price_range, rating, image_url, created_at)
		VALUES
			(:id, :name, :description, :city, :state, :address, :cuisine, :price_range, :rating, :image_url, :created_at)`,
		update: `UPDATE restaurants SET
			name = :name, description = :description, city = :city, state = :state, address = :address,
			cuisine = :cuisine, price_range = :price_range, image_url = :image_url
		WHERE id = :id`,
	},
	model.KindPlace: {
		name:    "places_to_visit",
		columns: "id, name, description, city, state, category, entry_fee, rating, image_url, created_at",
		insert: `INSERT INTO places_to_visit
			(id, name, description, city, state, category, entry_fee, rating, image_url, created_at)
		VALUES
			(:id, :name, :description, :city, :state, :category, :entry_fee, :rating, :image_url, :created_at)`,
		update: `UPDATE places_to_visit SET
			name = :name, description = :description, city = :city, state = :state,
			category = :category, entry_fee = :entry_fee, image_url = :image_url
		WHERE id = :id`,
	},
}

func tableFor(kind model.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("%w: unsupported entity type %q", model.ErrInvalidQuery, kind)
	}
	return t, nil
}

// ListingRepository reads and writes hostels, restaurants and places.
type ListingRepository struct {
	DB *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{DB: db}
}

// List returns one page of rows sorted by rating, plus the exact count of rows
// matching the query. localities are lower-case substrings; a row matches when
// its city or state contains any of them.
func (r *ListingRepository) List(ctx context.Context, q model.ListingQuery, localities []string) ([]model.Entity, int, error) {
	t, err := tableFor(q.Kind)
	if err != nil {
		return nil, 0, err
	}
	where, args := buildWhere(q, localities)

	var total int
	countQuery := r.DB.Rebind("SELECT COUNT(*) FROM " + t.name + where)
	if err := r.DB.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("ListingRepository.List count: %w", classify(err))
	}

	from, to := q.Range()
	query := r.DB.Rebind(fmt.Sprintf("SELECT %s FROM %s%s ORDER BY rating DESC LIMIT ? OFFSET ?", t.columns, t.name, where))
	rows, err := r.selectRows(ctx, q.Kind, query, append(args, to-from+1, from)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListingRepository.List: %w", classify(err))
	}
	return rows, total, nil
}

func buildWhere(q model.ListingQuery, localities []string) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if term := strings.TrimSpace(q.SearchTerm); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		clauses = append(clauses, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}

	names := make([]string, 0, len(q.Filters))
	for name := range q.Filters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// names are checked against model.Kind.Filters before reaching SQL
		if !q.Kind.AllowsFilter(name) {
			continue
		}
		clauses = append(clauses, "LOWER("+name+") = ?")
		args = append(args, strings.ToLower(q.Filters[name]))
	}

	if len(localities) > 0 {
		var ors []string
		for _, loc := range localities {
			like := "%" + escapeLike(loc) + "%"
			ors = append(ors, `LOWER(city) LIKE ? ESCAPE '\'`, `LOWER(state) LIKE ? ESCAPE '\'`)
			args = append(args, like, like)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *ListingRepository) selectRows(ctx context.Context, kind model.Kind, query string, args ...interface{}) ([]model.Entity, error) {
	switch kind {
	case model.KindHostel:
		var rows []model.Hostel
		if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]model.Entity, len(rows))
		for i := range rows {
			out[i] = rows[i]
		}
		return out, nil
	case model.KindRestaurant:
		var rows []model.Restaurant
		if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]model.Entity, len(rows))
		for i := range rows {
			out[i] = rows[i]
		}
		return out, nil
	case model.KindPlace:
		var rows []model.Place
		if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, err
		}
		out := make([]model.Entity, len(rows))
		for i := range rows {
			out[i] = rows[i]
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported entity type %q", model.ErrInvalidQuery, kind)
}

// GetByID returns model.ErrNotFound when no row has the id.
func (r *ListingRepository) GetByID(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := r.DB.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", t.columns, t.name))
	rows, err := r.selectRows(ctx, kind, query, id)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.GetByID: %w", classify(err))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ListingRepository.GetByID: %s %s: %w", kind, id, model.ErrNotFound)
	}
	return rows[0], nil
}

func (r *ListingRepository) Exists(ctx context.Context, kind model.Kind, id string) (bool, error) {
	t, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	var count int
	q := r.DB.Rebind("SELECT COUNT(1) FROM " + t.name + " WHERE id = ?")
	if err := r.DB.GetContext(ctx, &count, q, id); err != nil {
		return false, fmt.Errorf("ListingRepository.Exists: %w", classify(err))
	}
	return count > 0, nil
}

// Create inserts a hostel, restaurant or place.
func (r *ListingRepository) Create(ctx context.Context, e model.Entity) error {
	t, err := tableFor(e.EntityKind())
	if err != nil {
		return err
	}
	if _, err := r.DB.NamedExecContext(ctx, t.insert, e); err != nil {
		return fmt.Errorf("ListingRepository.Create: %w", classify(err))
	}
	return nil
}

// Update overwrites the editable columns. Rating is owned by review aggregation.
func (r *ListingRepository) Update(ctx context.Context, e model.Entity) error {
	t, err := tableFor(e.EntityKind())
	if err != nil {
		return err
	}
	res, err := r.DB.NamedExecContext(ctx, t.update, e)
	if err != nil {
		return fmt.Errorf("ListingRepository.Update: %w", classify(err))
	}
	return expectRow(res, "ListingRepository.Update")
}

func (r *ListingRepository) Delete(ctx context.Context, kind model.Kind, id string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM "+t.name+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("ListingRepository.Delete: %w", classify(err))
	}
	return expectRow(res, "ListingRepository.Delete")
}

func (r *ListingRepository) UpdateImageURL(ctx context.Context, kind model.Kind, id, url string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind("UPDATE "+t.name+" SET image_url = ? WHERE id = ?"), url, id)
	if err != nil {
		return fmt.Errorf("ListingRepository.UpdateImageURL: %w", classify(err))
	}
	return expectRow(res, "ListingRepository.UpdateImageURL")
}
