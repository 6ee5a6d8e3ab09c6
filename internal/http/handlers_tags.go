package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

const maxCategoryNameLength = 50

// validateNewCategory applies the stricter rules for categories created
// through the API: short, and only letters, digits, '-' and '_'.
func validateNewCategory(name string) error {
	if name == "" {
		return core.NewValidationError("name", "Category name required")
	}
	if len([]rune(name)) > maxCategoryNameLength {
		return core.NewValidationError("name", "Category name too long (max 50 characters)")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return core.NewValidationError("name", "Category name can only contain letters, numbers, hyphens and underscores")
		}
	}
	return nil
}

// writeRenameError answers a rename conflict with the target name so the
// client can offer a merge instead.
func writeRenameError(w http.ResponseWriter, r *http.Request, err error, target string) {
	if core.IsConflictError(err) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    domainMessage(err),
			"conflict": true,
			"target":   target,
		})
		return
	}
	writeError(w, r, applog.OpRename, err)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Tags.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	out := make([]categoryDTO, len(cats))
	for i, c := range cats {
		out[i] = categoryDTO{Name: c.Name, FullName: c.FullName}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request").Write(w)
		return
	}
	name := core.NormalizeCategory(p.Get("name"))
	if err := validateNewCategory(name); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	info, err := s.deps.Tags.AddCategory(r.Context(), name)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "category": info.Name})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	oldName, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpRename, err)
		return
	}
	newName, err := parseNameField(r, "name", "Category name required")
	if err != nil {
		writeError(w, r, applog.OpRename, err)
		return
	}
	newName = core.NormalizeCategory(newName)

	if err := s.deps.Tags.RenameCategory(r.Context(), oldName, newName); err != nil {
		writeRenameError(w, r, err, newName)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "category": newName})
}

func (s *Server) handleMergeCategory(w http.ResponseWriter, r *http.Request) {
	source, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}
	target, err := parseNameField(r, "target", "Target category name required")
	if err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}
	target = core.NormalizeCategory(target)

	if err := s.deps.Tags.MergeCategories(r.Context(), source, target); err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "category": target})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	name, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Tags.DeleteCategory(r.Context(), name); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.deps.Tags.ListTags(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleRenameTag(w http.ResponseWriter, r *http.Request) {
	oldName, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpRename, err)
		return
	}
	newName, err := parseNameField(r, "name", "Tag name required")
	if err != nil {
		writeError(w, r, applog.OpRename, err)
		return
	}

	if err := s.deps.Tags.RenameTag(r.Context(), oldName, newName); err != nil {
		writeRenameError(w, r, err, newName)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tag": newName})
}

func (s *Server) handleMergeTag(w http.ResponseWriter, r *http.Request) {
	source, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}
	target, err := parseNameField(r, "target", "Target tag name required")
	if err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}

	if err := s.deps.Tags.MergeTags(r.Context(), source, target); err != nil {
		writeError(w, r, applog.OpMerge, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tag": target})
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	name, err := pathName(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.deps.Tags.DeleteTag(r.Context(), name); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
