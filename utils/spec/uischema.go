// uischema serves the UI layout for the fixture config of each driver
package spec

import (
	"fmt"
)

var uiSchemaMap = map[string]string{
	"oracle": OracleUISchema,
}

const OracleUISchema = `{
  "ui:grid": [
    { "host": 12, "port": 12 },
    { "service_name": 12, "sid": 12 },
    { "username": 12, "password": 12 },
    { "connect_string": 12, "jdbc_url_params": 12 },
    { "dba_username": 12, "dba_password": 12 },
    { "client_version": 12, "tg_service": 12 },
    { "max_threads": 12, "retry_count": 12 },
    { "ssh_config": 12 }
  ],
  "password": {
    "ui:widget": "password"
  },
  "dba_password": {
    "ui:widget": "password"
  },
  "ssh_config": {
    "ui:options": {
      "title": false,
      "description": false
    },
    "ui:grid": [
      { "host": 12, "port": 12 },
      { "username": 12, "private_key": 12 },
      { "passphrase": 12, "password": 12 }
    ],
    "private_key": {
      "ui:widget": "textarea",
      "ui:options": {
        "rows": 1
      }
    }
  }
}`

func LoadUISchema(schemaType string) (string, error) {
	jsonStr, ok := uiSchemaMap[schemaType]
	if !ok {
		return "", fmt.Errorf("ui schema for %s not found", schemaType)
	}
	return jsonStr, nil
}
