package pgcatalog

import "github.com/google/logger"

// CalcSRID resolves a table's effective SRID from what the database
// reports (dbSRID), what the source config requests (cfgSRID), and a
// server-wide default, ported verbatim from calc_srid's truth table.
// Returns (0, false) where the Rust original returns None — an
// unconfigurable table that callers must skip rather than serve.
func CalcSRID(tableID, newID string, dbSRID, cfgSRID int32, defaultSRID *int32) (int32, bool) {
	switch {
	case dbSRID == 0 && cfgSRID == 0 && defaultSRID != nil:
		logger.Infof("table %s has SRID=0, using provided default SRID=%d", tableID, *defaultSRID)
		return *defaultSRID, true
	case dbSRID == 0 && cfgSRID == 0:
		logger.Warningf(
			"table %s has SRID=0, skipping. To use this table source, set default or specify this table SRID "+
				"in the config file, or set the default SRID with --default-srid=...", tableID)
		return 0, false
	case dbSRID == 0:
		return cfgSRID, true
	case cfgSRID == 0:
		return dbSRID, true
	case dbSRID != cfgSRID:
		logger.Warningf("table %s has SRID=%d, but source %s has SRID=%d", tableID, dbSRID, newID, cfgSRID)
		return 0, false
	default:
		return cfgSRID, true
	}
}
