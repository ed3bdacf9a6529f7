package testutil

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/oqlc/internal/model"
)

// Catalog builds the shared test schema.
//
//	Company   company(id, name, reg_no)
//	Person    person(id, name, age, status, street, city, employer_id, registrar_reg_no)
//	Employee  employee(id, salary)            extends Person
//	Phone     phone(id, number, kind, person_id)
//	Project   project(id, title)              via person_project(person_id, project_id)
//	          person_nickname(person_id, nickname)
//	Shipment  shipment(order_no, line_no, weight)
//	Parcel    parcel(id, label, shipment_order_no, shipment_line_no)
//
// Each call returns a fresh frozen catalog.
func Catalog() *model.Catalog {
	address := model.NewEmbeddable("Address",
		&model.Attribute{Name: "street", Nature: model.NatureBasic, Type: model.String, Columns: []string{"street"}},
		&model.Attribute{Name: "city", Nature: model.NatureBasic, Type: model.String, Columns: []string{"city"}},
	)

	company := model.NewEntity("Company", "company").
		ID("id", model.Long, "id").
		Basic("name", model.String, "name").
		Basic("regNo", model.String, "reg_no")

	project := model.NewEntity("Project", "project").
		ID("id", model.Long, "id").
		Basic("title", model.String, "title")

	person := model.NewEntity("Person", "person").
		ID("id", model.Long, "id").
		Basic("name", model.String, "name").
		Basic("age", model.Integer, "age").
		Basic("status", model.String, "status").
		Embedded("address", address).
		ManyToOne("employer", company, "employer_id").
		ManyToOne("registrar", company, "registrar_reg_no").
		ReferencingProperty("regNo")
	person.Discriminator = "P"

	phone := model.NewEntity("Phone", "phone").
		ID("id", model.Long, "id").
		Basic("number", model.String, "number").
		Basic("kind", model.String, "kind").
		ManyToOne("owner", person, "person_id")

	person.
		OneToMany("phones", phone, model.CollectionMapping{
			Table:          "phone",
			KeyColumns:     []string{"person_id"},
			ElementColumns: []string{"id"},
		}).
		ManyToMany("projects", project, model.CollectionMapping{
			Table:          "person_project",
			KeyColumns:     []string{"person_id"},
			ElementColumns: []string{"project_id"},
		}).
		ElementCollection("nicknames", model.String, model.CollectionMapping{
			Table:          "person_nickname",
			KeyColumns:     []string{"person_id"},
			ElementColumns: []string{"nickname"},
		})

	employee := model.NewEntity("Employee", "employee").
		Extends(person).
		Basic("salary", model.BigDecimal, "salary")
	employee.Discriminator = "E"

	shipmentKey := model.NewEmbeddable("ShipmentKey",
		&model.Attribute{Name: "orderNo", Nature: model.NatureBasic, Type: model.Long, Columns: []string{"order_no"}},
		&model.Attribute{Name: "lineNo", Nature: model.NatureBasic, Type: model.Integer, Columns: []string{"line_no"}},
	)
	shipment := model.NewEntity("Shipment", "shipment").
		CompositeID("id", shipmentKey).
		Basic("weight", model.Double, "weight")

	parcel := model.NewEntity("Parcel", "parcel").
		ID("id", model.Long, "id").
		Basic("label", model.String, "label").
		ManyToOne("shipment", shipment, "shipment_order_no", "shipment_line_no")

	c := model.NewCatalog()
	if err := c.AddEmbeddable(address); err != nil {
		panic(err)
	}
	if err := c.AddEmbeddable(shipmentKey); err != nil {
		panic(err)
	}
	if err := c.AddEntity(company, project, person, phone, employee, shipment, parcel); err != nil {
		panic(err)
	}
	if err := c.Freeze(); err != nil {
		panic(err)
	}
	return c
}

// Symbols builds the shared test symbol table.
func Symbols() model.Symbols {
	return model.Symbols{}.Add(
		&model.Class{
			Name:      "com.acme.Status",
			Enum:      true,
			Constants: []string{"ACTIVE", "RETIRED"},
		},
		&model.Class{
			Name:      "com.acme.Level",
			Enum:      true,
			Ordinal:   true,
			Constants: []string{"JUNIOR", "SENIOR"},
		},
		&model.Class{
			Name: "com.acme.Limits",
			Fields: map[string]*model.Field{
				"MAX_AGE": {Name: "MAX_AGE", Static: true, Exported: true, Type: model.Integer, Value: int32(65)},
				"RATE":    {Name: "RATE", Static: true, Exported: true, Type: model.BigDecimal, Value: decimal.RequireFromString("1.25")},
				"scratch": {Name: "scratch", Static: false, Exported: true, Type: model.Integer, Value: int32(0)},
				"SECRET":  {Name: "SECRET", Static: true, Exported: false, Type: model.String, Value: "x"},
			},
		},
		// "p" shadows the conventional alias of Person; attribute paths must win.
		&model.Class{
			Name: "p",
			Fields: map[string]*model.Field{
				"name": {Name: "name", Static: true, Exported: true, Type: model.String, Value: "constant"},
			},
		},
		&model.Class{Name: "com.acme.PersonSummary"},
	)
}
