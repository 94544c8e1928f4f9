package sqlgen

import (
	"fmt"

	"github.com/sidequery/sidemantic-sub003/internal/graphmodel"
	"github.com/sidequery/sidemantic-sub003/pkg/semerr"
)

// generateConversion renders a conversion metric's dedicated three-CTE
// template, per spec.md §4.2's last bullet. It is entirely separate from the
// generic windowed inner/outer wrapper: conversion metrics never mix with
// other request metrics (spec.md's Open Question resolution requires an
// explicit Model field and treats conversion as a self-contained query
// shape).
//
// The timestamp column is the owning model's DefaultTimeDimension (falling
// back to "ts" when unset); the event-name column is assumed to be named
// "event_name" — spec.md does not name either column explicitly, so this is
// a documented convention (see DESIGN.md).
func (gn *generator) generateConversion(metric *graphmodel.Metric, modelCtx string) (string, error) {
	modelName := metric.Model
	if modelName == "" {
		return "", semerr.NewNotFound("conversion model for metric", metric.Name)
	}
	m, err := gn.g.GetModel(modelName)
	if err != nil {
		return "", err
	}

	src, isSQL := m.Source()
	var from string
	if isSQL {
		from = fmt.Sprintf("(%s) AS t", src)
	} else {
		from = src
	}

	tsCol := m.DefaultTimeDimension
	if tsCol == "" {
		tsCol = "ts"
	}

	amount, unit, err := parseWindowSpec(metric.ConversionWindow)
	if err != nil {
		return "", err
	}
	windowInterval := gn.dialect.IntervalLiteral(amount, unit)

	sql := fmt.Sprintf(
		`WITH base_events AS (SELECT %s AS entity, %s AS ts FROM %s WHERE event_name = '%s'), `+
			`conversion_events AS (SELECT %s AS entity, %s AS ts FROM %s WHERE event_name = '%s'), `+
			`conversions AS (SELECT DISTINCT base_events.entity AS entity FROM base_events `+
			`JOIN conversion_events ON conversion_events.entity = base_events.entity `+
			`AND conversion_events.ts >= base_events.ts AND conversion_events.ts <= base_events.ts + %s) `+
			`SELECT COUNT(DISTINCT conversions.entity) / NULLIF(COUNT(DISTINCT base_events.entity), 0) AS %s `+
			`FROM base_events LEFT JOIN conversions ON conversions.entity = base_events.entity`,
		metric.Entity, tsCol, from, metric.BaseEvent,
		metric.Entity, tsCol, from, metric.ConversionEvent,
		windowInterval,
		metric.Name,
	)
	return sql, nil
}
