package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vbonduro/toolkeepr/internal/domain"
)

const propertyPrefix = "properties."

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func formText(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// formBool treats a checkbox as set when it posts "on", "true" or "1".
func formBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.FormValue(name)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// formInt returns 0 for a missing or malformed number; range checks in the
// services reject it with a field message.
func formInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(formText(r, name))
	if err != nil {
		return 0
	}
	return n
}

// formDate parses an optional YYYY-MM-DD field into errs on failure.
func formDate(r *http.Request, name, label string, errs domain.ValidationErrors) *time.Time {
	v := formText(r, name)
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		errs.Add(name, label+" must be a date (YYYY-MM-DD)")
		return nil
	}
	return &t
}

// formList splits a comma or newline separated field, dropping empties.
func formList(r *http.Request, name string) []string {
	fields := strings.FieldsFunc(r.FormValue(name), func(c rune) bool { return c == ',' || c == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// formProperties collects every "properties.<name>" field.
func formProperties(r *http.Request) map[string]string {
	props := map[string]string{}
	for key, vals := range r.PostForm {
		name, ok := strings.CutPrefix(key, propertyPrefix)
		if !ok || name == "" || len(vals) == 0 {
			continue
		}
		props[name] = vals[len(vals)-1]
	}
	return props
}

// formIDs parses every value of a repeated id field, skipping bad ones.
func formIDs(r *http.Request, name string) []int64 {
	var ids []int64
	for _, v := range r.PostForm[name] {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// formValues snapshots the posted form so a rejected form can be re-rendered
// with what the user typed.
func formValues(r *http.Request) map[string]string {
	vals := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			vals[k] = v[len(v)-1]
		}
	}
	return vals
}
