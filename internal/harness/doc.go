// Package harness runs compilation scenarios: a parse-tree query written
// inline in YAML together with the SQL, binders or error it must compile to.
//
// # Scenario Format
//
//	name: company_by_name
//	description: "Equality on a basic attribute binds a named parameter"
//	dialect: sqlite
//	query:
//	  select: {items: [{expr: {path: c.name}}]}
//	  from: [{root: {entity: Company, alias: c}}]
//	  where: {eq: [{path: c.name}, {param: name}]}
//	expect:
//	  sql: select c1_0.name from company c1_0 where c1_0.name=?
//	  statement: select
//	  binders: [":name string"]
//	assertions:
//	  - type: prepares
//
// A failing scenario names the error kind and, optionally, the stage:
//
//	expect:
//	  error: UNRESOLVED_NAME
//	  stage: analyze
//
// # Assertion Types
//
//   - sql_contains, sql_excludes: a fragment is or is not in the SQL
//   - binder_count, column_count: the plan's binder or result column count
//   - prepares: SQLite prepares the statement against the schema's tables
//
// # Deterministic Testing
//
// Each scenario compiles with its name as the compilation token, and the
// plan is snapshotted to testdata/golden by RunWithGolden.
//
// # Usage
//
//	h, err := harness.New(schema)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//	scenarios, err := harness.LoadScenarios("testdata/scenarios")
//	...
//	results, err := h.RunAll(ctx, scenarios)
package harness
