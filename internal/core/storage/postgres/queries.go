package postgres

const (
	queryUpsertAggregate = `
		INSERT INTO aggregates (
			series_name, bucket_time, value, series_fingerprint, flush_id, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (series_name, bucket_time)
		DO UPDATE SET
			value              = EXCLUDED.value,
			series_fingerprint = EXCLUDED.series_fingerprint,
			flush_id           = EXCLUDED.flush_id,
			updated_at         = EXCLUDED.updated_at
	`

	queryRangeAggregates = `
		SELECT series_name, bucket_time, value, series_fingerprint, flush_id, updated_at
		FROM aggregates
		WHERE series_name = $1
		  AND bucket_time >= $2
		  AND bucket_time < $3
		ORDER BY bucket_time ASC
		LIMIT NULLIF($4, 0)
	`

	queryValidateSchema = `SELECT series_name FROM aggregates LIMIT 0`
)
