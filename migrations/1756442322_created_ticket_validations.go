package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_4091854458",
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null,
			"name": "ticket_validations",
			"type": "base",
			"fields": [
				{
					"autogeneratePattern": "[a-z0-9]{15}",
					"hidden": false,
					"id": "text3208210256",
					"max": 15,
					"min": 15,
					"name": "id",
					"pattern": "^[a-z0-9]+$",
					"presentable": false,
					"primaryKey": true,
					"required": true,
					"system": true,
					"type": "text"
				},
				{
					"cascadeDelete": true,
					"collectionId": "pbc_3142635445",
					"hidden": false,
					"id": "relation1766001124",
					"maxSelect": 1,
					"minSelect": 0,
					"name": "ticket",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "relation"
				},
				{
					"hidden": false,
					"id": "select2063623452",
					"maxSelect": 1,
					"name": "status",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": [
						"valid",
						"already_used",
						"invalid",
						"expired"
					]
				},
				{
					"hidden": false,
					"id": "select3343321666",
					"maxSelect": 1,
					"name": "method",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": [
						"qr_scan",
						"manual"
					]
				},
				{
					"hidden": false,
					"id": "autodate2990389176",
					"name": "created",
					"onCreate": true,
					"onUpdate": false,
					"presentable": false,
					"system": false,
					"type": "autodate"
				},
				{
					"hidden": false,
					"id": "autodate3332085495",
					"name": "updated",
					"onCreate": true,
					"onUpdate": true,
					"presentable": false,
					"system": false,
					"type": "autodate"
				}
			],
			"indexes": [
				"CREATE INDEX ` + "`" + `idx_ticket_validations_ticket` + "`" + ` ON ` + "`" + `ticket_validations` + "`" + ` (` + "`" + `ticket` + "`" + `)",
				"CREATE UNIQUE INDEX ` + "`" + `idx_one_valid_per_ticket` + "`" + ` ON ` + "`" + `ticket_validations` + "`" + ` (` + "`" + `ticket` + "`" + `) WHERE ` + "`" + `status` + "`" + ` = 'valid'"
			],
			"system": false
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_4091854458")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
