package logsvc

import (
	"fmt"
	"net/http"

	"github.com/trezcool/masomo-portal/core/user"
)

// entry is what a log call is about, picked from its args:
// the first error, the signed in user, the HTTP request & any map[string]interface{} extras.
type entry struct {
	msg     string
	err     error
	person  *user.User
	request *http.Request
	extras  map[string]interface{}
}

func newEntry(msg string, args []interface{}) entry {
	e := entry{msg: msg, extras: make(map[string]interface{})}
	var others []string
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case error:
			if e.err == nil {
				e.err = v
			} else {
				others = append(others, v.Error())
			}
		case user.User:
			if e.person == nil && !v.IsZero() { // only one User
				usr := v
				e.person = &usr
			}
		case *http.Request:
			e.request = v
		case map[string]interface{}:
			for k, val := range v {
				e.extras[k] = val
			}
		default:
			others = append(others, fmt.Sprintf("%+v", v))
		}
	}
	if len(others) > 0 {
		e.extras["details"] = others
	}
	return e
}

// fields flattens the entry for structured output.
func (e entry) fields() map[string]interface{} {
	f := make(map[string]interface{}, len(e.extras)+5)
	for k, v := range e.extras {
		f[k] = v
	}
	f["msg"] = e.msg
	if e.err != nil {
		f["error"] = e.err.Error()
	}
	if e.person != nil {
		f["user"] = e.person.ID
		f["role"] = e.person.Role
	}
	if e.request != nil {
		f["method"] = e.request.Method
		f["path"] = e.request.URL.Path
	}
	return f
}
