package postgres

import (
	"context"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/poll-service/internal/models"
)

// changeFeedTables are the tables whose writes are broadcast on the change channel
var changeFeedTables = []string{"polls", "poll_responses", "students"}

var channelNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// notifyFunctionSQL publishes {table, op, row} on the channel. Rows that would exceed
// the NOTIFY payload limit are reduced to their key columns.
const notifyFunctionSQL = `
CREATE OR REPLACE FUNCTION notify_%[1]s() RETURNS trigger AS $$
DECLARE
	rec jsonb;
	payload text;
BEGIN
	rec := to_jsonb(COALESCE(NEW, OLD)) - 'password';
	payload := json_build_object('table', TG_TABLE_NAME, 'op', TG_OP, 'row', rec)::text;
	IF octet_length(payload) > 7900 THEN
		rec := jsonb_strip_nulls(jsonb_build_object(
			'id', rec->'id',
			'poll_id', rec->'poll_id',
			'student_reg_no', rec->'student_reg_no',
			'reg_no', rec->'reg_no',
			'class_id', rec->'class_id'));
		payload := json_build_object('table', TG_TABLE_NAME, 'op', TG_OP, 'row', rec)::text;
	END IF;
	PERFORM pg_notify('%[1]s', payload);
	RETURN COALESCE(NEW, OLD);
END;
$$ LANGUAGE plpgsql;`

// Migrate creates the schema and installs the change notification triggers
func Migrate(ctx context.Context, db *gorm.DB, channel string) error {
	if !channelNamePattern.MatchString(channel) {
		return fmt.Errorf("invalid change channel name %q", channel)
	}

	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&models.Student{},
		&models.Staff{},
		&models.Class{},
		&models.Poll{},
		&models.PollResponse{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf(notifyFunctionSQL, channel)).Error; err != nil {
			return fmt.Errorf("failed to install notify function: %w", err)
		}

		for _, table := range changeFeedTables {
			trigger := fmt.Sprintf("%s_%s", table, channel)
			if err := tx.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trigger, table)).Error; err != nil {
				return fmt.Errorf("failed to drop trigger on %s: %w", table, err)
			}
			if err := tx.Exec(fmt.Sprintf(
				"CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION notify_%s()",
				trigger, table, channel,
			)).Error; err != nil {
				return fmt.Errorf("failed to create trigger on %s: %w", table, err)
			}
		}

		return nil
	})
}
