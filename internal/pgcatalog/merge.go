package pgcatalog

import "github.com/google/logger"

// NormalizeKey finds the actual database column a requested property or
// id-column name refers to, matching pg::utils::normalize_key's
// case-insensitive fallback: an exact match wins, otherwise a unique
// case-insensitive match is accepted and warned about, and no match or an
// ambiguous match is reported to the caller.
func NormalizeKey(props map[string]string, key, context, sourceID string) (string, bool) {
	if _, ok := props[key]; ok {
		return key, true
	}

	var candidates []string
	for name := range props {
		if equalFold(name, key) {
			candidates = append(candidates, name)
		}
	}
	switch len(candidates) {
	case 0:
		logger.Warningf("source %s: %s %q not found among available properties", sourceID, context, key)
		return "", false
	case 1:
		logger.Warningf("source %s: %s %q matched case-insensitively to column %q", sourceID, context, key, candidates[0])
		return candidates[0], true
	default:
		logger.Warningf("source %s: %s %q matches multiple columns case-insensitively, skipping", sourceID, context, key)
		return "", false
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// MergeTableInfo combines what the database reports (dbInfo) with what the
// source config requests (cfgInfo) into the TableInfo the query builder
// uses, ported from merge_table_info. Returns ok=false when the SRID can't
// be resolved or a requested property/id-column can't be matched.
func MergeTableInfo(defaultSRID *int32, newID string, cfgInfo, dbInfo TableInfo) (TableInfo, bool) {
	tableID := dbInfo.FormatID()

	srid, ok := CalcSRID(tableID, newID, dbInfo.SRID, cfgInfo.SRID, defaultSRID)
	if !ok {
		return TableInfo{}, false
	}

	info := cfgInfo
	info.Schema = dbInfo.Schema
	info.Table = dbInfo.Table
	info.GeometryColumn = dbInfo.GeometryColumn
	info.GeometryIndex = dbInfo.GeometryIndex
	info.IsView = dbInfo.IsView
	info.SRID = srid
	info.PropMapping = make(map[string]string)

	if dbInfo.GeometryType != "" && cfgInfo.GeometryType != "" && dbInfo.GeometryType != cfgInfo.GeometryType {
		logger.Warningf("table %s has geometry type=%s, but source %s has %s",
			tableID, dbInfo.GeometryType, newID, cfgInfo.GeometryType)
	}

	props := dbInfo.Properties
	if props == nil {
		props = map[string]string{}
	}

	if cfgInfo.IDColumn != "" {
		col, ok := NormalizeKey(props, cfgInfo.IDColumn, "id_column", newID)
		if !ok {
			return TableInfo{}, false
		}
		info.PropMapping[cfgInfo.IDColumn] = col
	}

	for key := range cfgInfo.Properties {
		col, ok := NormalizeKey(props, key, "property", newID)
		if !ok {
			return TableInfo{}, false
		}
		info.PropMapping[key] = col
	}

	return info, true
}
