package engine

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

// Handler serves the record-editing surface: CRUD over record instances
// plus the form-spec endpoint consumed by rendering clients.
type Handler struct {
	store    *store.Store
	registry *metadata.Registry
}

func NewHandler(s *store.Store, reg *metadata.Registry) *Handler {
	return &Handler{store: s, registry: reg}
}

// List handles GET /api/records/:type
func (h *Handler) List(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	plan, err := ParseListParams(c, rt, h.registry)
	if err != nil {
		return err
	}

	if plan.Where != "" {
		return h.listFiltered(c, plan)
	}

	sqlStr, params := BuildListSQL(h.store.Dialect, plan, true)
	instances, err := h.store.QueryInstances(c.Context(), sqlStr, params...)
	if err != nil {
		return fmt.Errorf("list %s: %w", rt.Name, err)
	}

	countSQL, countParams := BuildCountSQL(h.store.Dialect, plan)
	total, err := h.store.CountRows(c.Context(), countSQL, countParams...)
	if err != nil {
		return fmt.Errorf("count %s: %w", rt.Name, err)
	}

	return c.JSON(fiber.Map{
		"data": instancesJSON(instances),
		"meta": fiber.Map{
			"page":     plan.Page,
			"per_page": plan.PerPage,
			"total":    total,
		},
	})
}

// listFiltered evaluates the where expression over the filtered result
// set and paginates in memory.
func (h *Handler) listFiltered(c *fiber.Ctx, plan *ListPlan) error {
	prog, err := CompileWhere(plan.Where)
	if err != nil {
		return respondError(c, NewAppError("INVALID_EXPRESSION", 400, err.Error()))
	}

	sqlStr, params := BuildListSQL(h.store.Dialect, plan, false)
	instances, err := h.store.QueryInstances(c.Context(), sqlStr, params...)
	if err != nil {
		return fmt.Errorf("list %s: %w", plan.RecordType.Name, err)
	}

	var matched []*store.Instance
	for _, inst := range instances {
		if MatchWhere(prog, inst.Data) {
			matched = append(matched, inst)
		}
	}

	total := len(matched)
	start := (plan.Page - 1) * plan.PerPage
	if start > total {
		start = total
	}
	end := start + plan.PerPage
	if end > total {
		end = total
	}

	return c.JSON(fiber.Map{
		"data": instancesJSON(matched[start:end]),
		"meta": fiber.Map{
			"page":     plan.Page,
			"per_page": plan.PerPage,
			"total":    total,
		},
	})
}

// GetByID handles GET /api/records/:type/:id
func (h *Handler) GetByID(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	inst, err := h.store.GetInstance(c.Context(), rt, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(rt.Name, id))
		}
		return fmt.Errorf("get %s/%s: %w", rt.Name, id, err)
	}

	return c.JSON(fiber.Map{"data": instanceJSON(inst)})
}

// Create handles POST /api/records/:type. The body is the attached-data
// mapping; assigned fields absent from it are filled with their defaults
// so every instance carries the full key set.
func (h *Handler) Create(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	var data map[string]any
	if err := c.BodyParser(&data); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}
	if data == nil {
		data = map[string]any{}
	}

	if errs := ValidateRecordData(h.registry, rt.Name, data); len(errs) > 0 {
		return respondError(c, ValidationError(errs))
	}

	for _, def := range h.registry.FieldsFor(rt.Name) {
		if _, ok := data[def.Name]; !ok {
			data[def.Name] = def.Default
		}
	}

	inst := &store.Instance{ID: uuid.New().String(), Data: data}
	if err := h.store.InsertInstance(c.Context(), rt, inst); err != nil {
		return fmt.Errorf("create %s: %w", rt.Name, err)
	}

	return c.Status(201).JSON(fiber.Map{"data": instanceJSON(inst)})
}

// Update handles PUT /api/records/:type/:id. Submitted keys are merged
// over the stored attached data and the result is validated as a whole.
func (h *Handler) Update(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	inst, err := h.store.GetInstance(c.Context(), rt, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(rt.Name, id))
		}
		return fmt.Errorf("fetch %s/%s: %w", rt.Name, id, err)
	}

	var updates map[string]any
	if err := c.BodyParser(&updates); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	for k, v := range updates {
		inst.Data[k] = v
	}

	if errs := ValidateRecordData(h.registry, rt.Name, inst.Data); len(errs) > 0 {
		return respondError(c, ValidationError(errs))
	}

	if err := h.store.UpdateInstance(c.Context(), rt, inst); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(rt.Name, id))
		}
		return fmt.Errorf("update %s/%s: %w", rt.Name, id, err)
	}

	return c.JSON(fiber.Map{"data": instanceJSON(inst)})
}

// Delete handles DELETE /api/records/:type/:id
func (h *Handler) Delete(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	id := c.Params("id")
	if err := h.store.DeleteInstance(c.Context(), rt, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return respondError(c, NotFoundError(rt.Name, id))
		}
		return fmt.Errorf("delete %s/%s: %w", rt.Name, id, err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
}

// FormSpecs handles GET /api/records/:type/_form. Returns the input specs
// for all fields assigned to the record type, in display order.
// ?bulk=true produces the bulk-edit variant (no initials, nothing
// required); ?csv=true produces the text-import variant.
func (h *Handler) FormSpecs(c *fiber.Ctx) error {
	rt, err := h.resolveRecordType(c)
	if err != nil {
		return err
	}

	bulk := c.QueryBool("bulk")
	opts := InputSpecOptions{
		SetInitial:        !bulk,
		EnforceRequired:   !bulk,
		ForBulkTextImport: c.QueryBool("csv"),
	}

	specs := []InputSpec{}
	for _, def := range h.registry.FieldsFor(rt.Name) {
		specs = append(specs, BuildInputSpec(def, opts))
	}

	return c.JSON(fiber.Map{"data": specs})
}

func (h *Handler) resolveRecordType(c *fiber.Ctx) (*metadata.RecordType, error) {
	name := c.Params("type")
	rt := h.registry.GetRecordType(name)
	if rt == nil || !rt.CustomFields {
		return nil, respondError(c, NotFoundError("record type", name))
	}
	return rt, nil
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}

func instanceJSON(inst *store.Instance) fiber.Map {
	return fiber.Map{"id": inst.ID, "custom_field_data": inst.Data}
}

func instancesJSON(instances []*store.Instance) []fiber.Map {
	out := make([]fiber.Map, 0, len(instances))
	for _, inst := range instances {
		out = append(out, instanceJSON(inst))
	}
	return out
}
