package admin

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"customfields-backend/internal/engine"
	"customfields-backend/internal/metadata"
	"customfields-backend/internal/store"
)

// Handler serves the definition-lifecycle surface. Every mutation follows
// the same sequence: validate, persist, synchronize attached data, reload
// the registry.
type Handler struct {
	store    *store.Store
	registry *metadata.Registry
	migrator *store.Migrator
	sync     *engine.Synchronizer
}

func NewHandler(s *store.Store, reg *metadata.Registry, mig *store.Migrator, sync *engine.Synchronizer) *Handler {
	return &Handler{store: s, registry: reg, migrator: mig, sync: sync}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	admin := app.Group("/api/_admin", middleware...)

	admin.Get("/custom-fields", h.ListFields)
	admin.Post("/custom-fields", h.CreateField)
	admin.Get("/custom-fields/:name", h.GetField)
	admin.Put("/custom-fields/:name", h.UpdateField)
	admin.Delete("/custom-fields/:name", h.DeleteField)
	admin.Post("/custom-fields/:name/rename", h.RenameField)

	admin.Get("/record-types", h.ListRecordTypes)
	admin.Post("/record-types", h.CreateRecordType)
	admin.Get("/record-types/:name", h.GetRecordType)
	admin.Delete("/record-types/:name", h.DeleteRecordType)
}

// --- Custom field endpoints ---

func (h *Handler) ListFields(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.AllFields()})
}

func (h *Handler) GetField(c *fiber.Ctx) error {
	name := c.Params("name")
	def := h.registry.GetField(name)
	if def == nil {
		return respondError(c, engine.NotFoundError("custom field", name))
	}
	return c.JSON(fiber.Map{"data": def})
}

// CreateField handles POST /api/_admin/custom-fields. On success the new
// field's default is backfilled onto every instance of the assigned
// record types.
func (h *Handler) CreateField(c *fiber.Ctx) error {
	def, appErr := h.parseDefinition(c)
	if appErr != nil {
		return respondError(c, appErr)
	}

	if errs := h.validateDefinition(def); len(errs) > 0 {
		return respondError(c, engine.ValidationError(errs))
	}

	if existing := h.registry.GetField(def.Name); existing != nil {
		return respondError(c, engine.ConflictError("Custom field already exists: "+def.Name))
	}

	if err := h.insertField(c, def); err != nil {
		return fmt.Errorf("insert custom field: %w", err)
	}

	if err := h.sync.PopulateInitialData(c.Context(), def, h.registry.ResolveRecordTypes(def.RecordTypes)); err != nil {
		return fmt.Errorf("populate initial data for %s: %w", def.Name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.Status(201).JSON(fiber.Map{"data": def})
}

// UpdateField handles PUT /api/_admin/custom-fields/:name. The name in
// the URL is authoritative and never changed here; renames go through the
// explicit rename endpoint. Assignment changes backfill added record
// types and purge removed ones.
func (h *Handler) UpdateField(c *fiber.Ctx) error {
	name := c.Params("name")
	existing := h.registry.GetField(name)
	if existing == nil {
		return respondError(c, engine.NotFoundError("custom field", name))
	}

	def, appErr := h.parseDefinition(c)
	if appErr != nil {
		return respondError(c, appErr)
	}
	def.Name = name

	if errs := h.validateDefinition(def); len(errs) > 0 {
		return respondError(c, engine.ValidationError(errs))
	}

	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"UPDATE _custom_fields SET definition = %s, updated_at = %s WHERE name = %s",
		pb.Add(h.store.Dialect.JSONParam(defJSON)), h.store.Dialect.NowExpr(), pb.Add(name),
	)
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("update custom field %s: %w", name, err)
	}

	added, removed := assignmentDelta(existing.RecordTypes, def.RecordTypes)
	if err := h.sync.PopulateInitialData(c.Context(), def, h.registry.ResolveRecordTypes(added)); err != nil {
		return fmt.Errorf("populate initial data for %s: %w", def.Name, err)
	}
	if err := h.sync.RemoveStaleData(c.Context(), def, h.registry.ResolveRecordTypes(removed)); err != nil {
		return fmt.Errorf("remove stale data for %s: %w", def.Name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": def})
}

// RenameField handles POST /api/_admin/custom-fields/:name/rename. The
// stored definition is renamed first, then the attached-data keys are
// moved on every instance of the field's current record types.
func (h *Handler) RenameField(c *fiber.Ctx) error {
	oldName := c.Params("name")
	existing := h.registry.GetField(oldName)
	if existing == nil {
		return respondError(c, engine.NotFoundError("custom field", oldName))
	}

	var body struct {
		NewName string `json:"new_name"`
	}
	if err := c.BodyParser(&body); err != nil || body.NewName == "" {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "A new_name is required"))
	}
	if body.NewName == oldName {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "The new name matches the current name"))
	}
	if h.registry.GetField(body.NewName) != nil {
		return respondError(c, engine.ConflictError("Custom field already exists: "+body.NewName))
	}

	renamed := *existing
	renamed.Name = body.NewName

	defJSON, err := json.Marshal(&renamed)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"UPDATE _custom_fields SET name = %s, definition = %s, updated_at = %s WHERE name = %s",
		pb.Add(body.NewName), pb.Add(h.store.Dialect.JSONParam(defJSON)), h.store.Dialect.NowExpr(), pb.Add(oldName),
	)
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("rename custom field %s: %w", oldName, err)
	}

	if err := h.sync.RenameObjectData(c.Context(), &renamed, oldName, body.NewName); err != nil {
		return fmt.Errorf("rename object data %s to %s: %w", oldName, body.NewName, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": &renamed})
}

// DeleteField handles DELETE /api/_admin/custom-fields/:name. Attached
// data is purged from all assigned record types before the definition row
// is removed.
func (h *Handler) DeleteField(c *fiber.Ctx) error {
	name := c.Params("name")
	def := h.registry.GetField(name)
	if def == nil {
		return respondError(c, engine.NotFoundError("custom field", name))
	}

	if err := h.sync.RemoveStaleData(c.Context(), def, h.registry.ResolveRecordTypes(def.RecordTypes)); err != nil {
		return fmt.Errorf("remove stale data for %s: %w", name, err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM _custom_fields WHERE name = %s", pb.Add(name))
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("delete custom field %s: %w", name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"name": name, "deleted": true}})
}

// --- Record type endpoints ---

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (h *Handler) ListRecordTypes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.AllRecordTypes()})
}

func (h *Handler) GetRecordType(c *fiber.Ctx) error {
	name := c.Params("name")
	rt := h.registry.GetRecordType(name)
	if rt == nil {
		return respondError(c, engine.NotFoundError("record type", name))
	}
	return c.JSON(fiber.Map{"data": rt})
}

// CreateRecordType handles POST /api/_admin/record-types and provisions
// the instance table.
func (h *Handler) CreateRecordType(c *fiber.Ctx) error {
	var rt metadata.RecordType
	if err := c.BodyParser(&rt); err != nil {
		return respondError(c, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}

	if rt.Name == "" || rt.Table == "" {
		return respondError(c, engine.NewAppError("VALIDATION_FAILED", 422, "name and table are required"))
	}
	if !tableNameRe.MatchString(rt.Table) {
		return respondError(c, engine.NewAppError("VALIDATION_FAILED", 422, "table must be a lowercase identifier"))
	}
	if h.registry.GetRecordType(rt.Name) != nil {
		return respondError(c, engine.ConflictError("Record type already exists: "+rt.Name))
	}

	defJSON, err := json.Marshal(&rt)
	if err != nil {
		return fmt.Errorf("marshal record type: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO _record_types (name, definition) VALUES (%s, %s)",
		pb.Add(rt.Name), pb.Add(h.store.Dialect.JSONParam(defJSON)),
	)
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("insert record type: %w", err)
	}

	if err := h.migrator.EnsureInstanceTable(c.Context(), &rt); err != nil {
		return fmt.Errorf("provision table for %s: %w", rt.Name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.Status(201).JSON(fiber.Map{"data": rt})
}

// DeleteRecordType handles DELETE /api/_admin/record-types/:name. Refused
// while fields are still assigned; the instance table is kept.
func (h *Handler) DeleteRecordType(c *fiber.Ctx) error {
	name := c.Params("name")
	rt := h.registry.GetRecordType(name)
	if rt == nil {
		return respondError(c, engine.NotFoundError("record type", name))
	}

	if assigned := h.registry.FieldsAssignedTo(name); len(assigned) > 0 {
		return respondError(c, engine.ConflictError(
			fmt.Sprintf("Record type %s still has assigned custom fields: unassign or delete them first", name)))
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM _record_types WHERE name = %s", pb.Add(name))
	if _, err := store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...); err != nil {
		return fmt.Errorf("delete record type %s: %w", name, err)
	}

	if err := metadata.Reload(c.Context(), h.store.DB, h.registry); err != nil {
		return fmt.Errorf("reload registry: %w", err)
	}

	return c.JSON(fiber.Map{"data": fiber.Map{"name": name, "deleted": true}})
}

// --- Helpers ---

// parseDefinition decodes a definition body, applying the default weight
// when the payload does not specify one.
func (h *Handler) parseDefinition(c *fiber.Ctx) (*metadata.FieldDefinition, *engine.AppError) {
	var def metadata.FieldDefinition
	if err := c.BodyParser(&def); err != nil {
		return nil, engine.NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &raw); err == nil {
		if _, ok := raw["weight"]; !ok {
			def.Weight = metadata.DefaultWeight
		}
	}

	return &def, nil
}

// validateDefinition runs the engine invariants plus the registry-level
// checks: assigned record types must exist and accept custom fields.
func (h *Handler) validateDefinition(def *metadata.FieldDefinition) []engine.ErrorDetail {
	errs := engine.ValidateDefinition(def)

	for _, name := range def.RecordTypes {
		rt := h.registry.GetRecordType(name)
		if rt == nil {
			errs = append(errs, engine.ErrorDetail{
				Field: "record_types", Rule: "unknown",
				Message: fmt.Sprintf("Unknown record type: %s", name),
			})
		} else if !rt.CustomFields {
			errs = append(errs, engine.ErrorDetail{
				Field: "record_types", Rule: "unsupported",
				Message: fmt.Sprintf("Record type %s does not support custom fields", name),
			})
		}
	}

	return errs
}

func (h *Handler) insertField(c *fiber.Ctx, def *metadata.FieldDefinition) error {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	pb := h.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"INSERT INTO _custom_fields (name, definition) VALUES (%s, %s)",
		pb.Add(def.Name), pb.Add(h.store.Dialect.JSONParam(defJSON)),
	)
	_, err = store.Exec(c.Context(), h.store.DB, sqlStr, pb.Params()...)
	return err
}

// assignmentDelta computes the record types added to and removed from a
// definition's assignments.
func assignmentDelta(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]bool, len(before))
	for _, name := range before {
		beforeSet[name] = true
	}
	afterSet := make(map[string]bool, len(after))
	for _, name := range after {
		afterSet[name] = true
		if !beforeSet[name] {
			added = append(added, name)
		}
	}
	for _, name := range before {
		if !afterSet[name] {
			removed = append(removed, name)
		}
	}
	return added, removed
}

func respondError(c *fiber.Ctx, appErr *engine.AppError) error {
	return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
}
