package script

import (
	"encoding/json"
	"strconv"

	"github.com/osteele/liquid"
)

// locustTemplate renders a Locust user class with one task per endpoint.
// Every interpolated value is a Python string literal; structured values are JSON decoded at load time.
const locustTemplate = `from locust import HttpUser, task, between
import json


class APIUser(HttpUser):
    wait_time = between({{ min_wait }}, {{ max_wait }})
    host = {{ host }}
{% for t in tasks %}
    @task
    def {{ t.name }}(self):
        method = {{ t.method }}
        url = {{ t.url }}
        headers = json.loads({{ t.headers }})
        params = json.loads({{ t.params }})
        payload = json.loads({{ t.payload }})

        try:
            if method == "GET":
                self.client.get(url, headers=headers, params=params, name={{ t.label }})
            elif method == "POST":
                self.client.post(url, headers=headers, params=params, json=payload, name={{ t.label }})
            elif method == "PUT":
                self.client.put(url, headers=headers, params=params, json=payload, name={{ t.label }})
            elif method == "DELETE":
                self.client.delete(url, headers=headers, params=params, name={{ t.label }})
            else:
                self.client.request(method, url, headers=headers, params=params, json=payload, name={{ t.label }})
        except Exception as e:
            print(f"Error executing {method} {url}: {e}")
{% endfor %}`

var (
	engine         = liquid.NewEngine()
	scriptTemplate = mustParse(locustTemplate)
)

func mustParse(source string) *liquid.Template {
	tpl, err := engine.ParseString(source)
	if err != nil {
		panic(err)
	}
	return tpl
}

// pyString quotes s as a Python string literal. Go's quoting escapes are a subset of Python's.
func pyString(s string) string {
	return strconv.Quote(s)
}

// pyJSON encodes v as JSON wrapped in a Python string literal, for use with json.loads
func pyJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return pyString(string(data)), nil
}
