package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

// ListPlan describes a record listing request: custom-field filters, an
// optional expression filter, and pagination.
type ListPlan struct {
	RecordType *metadata.RecordType
	Filters    []FieldFilter
	Where      string
	Page       int
	PerPage    int
}

// FieldFilter matches one custom field against a literal, honoring the
// field's filter logic (loose = case-insensitive substring, exact =
// entire stored value).
type FieldFilter struct {
	Def   *metadata.FieldDefinition
	Value string
}

// ParseListParams parses query parameters into a ListPlan.
// Filters use the filter[field]=value form; only fields assigned to the
// record type may be filtered on.
func ParseListParams(c *fiber.Ctx, rt *metadata.RecordType, reg *metadata.Registry) (*ListPlan, error) {
	plan := &ListPlan{
		RecordType: rt,
		Page:       1,
		PerPage:    25,
	}

	for key, val := range c.Queries() {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		name := key[7 : len(key)-1]

		def := reg.GetField(name)
		if def == nil || !def.AppliesTo(rt.Name) {
			return nil, &AppError{
				Code:    "UNKNOWN_FIELD",
				Status:  400,
				Message: fmt.Sprintf("Unknown filter field: %s", name),
			}
		}

		plan.Filters = append(plan.Filters, FieldFilter{Def: def, Value: val})
	}

	plan.Where = c.Query("where")

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			plan.Page = v
		}
	}
	if pp := c.Query("per_page"); pp != "" {
		if v, err := strconv.Atoi(pp); err == nil && v > 0 {
			plan.PerPage = v
		}
	}

	return plan, nil
}

// BuildListSQL renders the plan's filters into a SELECT over the record
// type's instance table. Pagination is omitted when paginate is false
// (the expression filter paginates in memory after evaluation).
func BuildListSQL(d store.Dialect, plan *ListPlan, paginate bool) (string, []any) {
	pb := d.NewParamBuilder()

	sqlStr := fmt.Sprintf("SELECT id, %s FROM %s", metadata.DataColumn, plan.RecordType.Table)
	sqlStr += whereClause(d, pb, plan.Filters)
	sqlStr += " ORDER BY id"

	if paginate {
		offset := (plan.Page - 1) * plan.PerPage
		sqlStr += fmt.Sprintf(" LIMIT %s OFFSET %s", pb.Add(plan.PerPage), pb.Add(offset))
	}

	return sqlStr, pb.Params()
}

// BuildCountSQL renders the plan's filters into a COUNT query.
func BuildCountSQL(d store.Dialect, plan *ListPlan) (string, []any) {
	pb := d.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", plan.RecordType.Table)
	sqlStr += whereClause(d, pb, plan.Filters)
	return sqlStr, pb.Params()
}

func whereClause(d store.Dialect, pb store.ParamBuilder, filters []FieldFilter) string {
	if len(filters) == 0 {
		return ""
	}

	conds := make([]string, len(filters))
	for i, f := range filters {
		valueExpr := d.TextValueExpr(pb, f.Def.Name)
		if f.Def.FilterLogic == metadata.FilterExact {
			conds[i] = fmt.Sprintf("%s = %s", valueExpr, pb.Add(f.Value))
		} else {
			conds[i] = d.ContainsExpr(valueExpr, pb, f.Value)
		}
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
