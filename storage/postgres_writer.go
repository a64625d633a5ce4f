package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"olx-dacha-scraper/models"
)

// PostgresWriter mirrors listing records into PostgreSQL, keyed by
// listing_id. The worksheet stays authoritative; this mirror exists for
// local SQL analysis.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS dacha_listings (
			listing_id        TEXT PRIMARY KEY,
			url               TEXT NOT NULL,
			ad_id             TEXT NOT NULL DEFAULT '',
			title             TEXT NOT NULL DEFAULT '',
			description       TEXT NOT NULL DEFAULT '',
			price_uzs         BIGINT,
			negotiable        BOOLEAN NOT NULL DEFAULT FALSE,
			region            TEXT NOT NULL DEFAULT '',
			district          TEXT NOT NULL DEFAULT '',
			rooms             INT,
			capacity_beds     INT,
			area_m2           INT,
			posted_dt_local   TIMESTAMPTZ,
			seller_name       TEXT NOT NULL DEFAULT '',
			seller_type       TEXT NOT NULL DEFAULT '',
			seller_phone      TEXT NOT NULL DEFAULT '',
			seller_phone_hash TEXT NOT NULL DEFAULT '',
			views_count       INT,
			amenities         TEXT NOT NULL DEFAULT '',
			rules             TEXT NOT NULL DEFAULT '',
			photo_count       INT NOT NULL DEFAULT 0,
			lang_detect       VARCHAR(16) NOT NULL DEFAULT 'unknown',
			observed_at       TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dacha_listings_price  ON dacha_listings(price_uzs);
		CREATE INDEX IF NOT EXISTS idx_dacha_listings_region ON dacha_listings(region);
		CREATE INDEX IF NOT EXISTS idx_dacha_listings_phone  ON dacha_listings(seller_phone_hash);
	`)
	return err
}

// WriteRecords upserts the batch: new listing ids insert, existing ones
// update in place. Old observations are never deleted.
func (pw *PostgresWriter) WriteRecords(records []*models.ListingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO dacha_listings (
			listing_id, url, ad_id, title, description, price_uzs, negotiable,
			region, district, rooms, capacity_beds, area_m2, posted_dt_local,
			seller_name, seller_type, seller_phone, seller_phone_hash,
			views_count, amenities, rules, photo_count, lang_detect, observed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (listing_id) DO UPDATE SET
			price_uzs    = EXCLUDED.price_uzs,
			negotiable   = EXCLUDED.negotiable,
			seller_phone = EXCLUDED.seller_phone,
			seller_phone_hash = EXCLUDED.seller_phone_hash,
			views_count  = EXCLUDED.views_count,
			observed_at  = EXCLUDED.observed_at
	`)
	if err != nil {
		return fmt.Errorf("postgres: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		row := r.Row()
		_, err := stmt.Exec(
			r.ListingID, r.URL, r.AdID, r.Title, r.Description,
			nullInt64(r.PriceUZS), r.Negotiable, r.Region, r.District,
			nullInt(r.Rooms), nullInt(r.CapacityBeds), nullInt(r.AreaM2),
			nullTime(r.PostedAtLocal), r.SellerName, r.SellerType,
			r.SellerPhone, r.SellerPhoneHash, nullInt(r.ViewsCount),
			row[18], row[19], r.PhotoCount, string(r.Script), r.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", r.ListingID, err)
		}
	}

	return tx.Commit()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
