// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

// Package prompt holds the system prompts that steer the agent loop. The
// build prompts share a generic OWL-DL framing and differ only in the
// scenario section describing the data source. Prompts are plain strings so
// callers can log, diff, and snapshot them without template machinery.
package prompt

import (
	"fmt"
	"strings"
)

// Generic is the ontology framing shared by every build prompt. It defines
// the TBox/ABox vocabulary the extraction capabilities expect and instructs
// the model to unify equivalent surface forms before registering entities.
const Generic = "## Context\n" +
	"You are an **OWL-DL ontology expert**. Build an ontology from the data below.\n" +
	"\n" +
	"An ontology consists of:\n" +
	"- **TBox**\n" +
	"  - **Classes**: group individuals (∈); may have subclasses (⊑).\n" +
	"  - **Properties**: link individuals or individuals to literals as tuples:  \n" +
	"    `(subject, property, object)` or `(subject, property, literal)`.  \n" +
	"    Prefer linking individuals over literals.\n" +
	"\n" +
	"- **ABox**\n" +
	"  - **Individuals**: belong to classes and have properties with other individuals or literals.\n" +
	"  - **Literals**: are data primitives (e.g., str, int, etc.).\n" +
	"\n" +
	"Each class, property, and individual name is a unique identifier.\n" +
	"\n" +
	"## Task\n" +
	"From the provided data:\n" +
	"\n" +
	"1. Define relevant **classes**.  \n" +
	"2. Define **properties** linking data.  \n" +
	"3. Define **individuals** with their classes and properties.  \n" +
	"\n" +
	"Unify equivalent terms (e.g., `Kg` = `kg`, `MiniSplit` = `Mini Split`).  \n" +
	"Do **not** omit any data.\n"

// User turns paired with the build prompts. The system prompt carries the
// data; the user turn only triggers the extraction pass.
const (
	ExtractTurn    = "Extract the class, individuals and properties to generate the ontology as specified."
	EnrichTurn     = "Extract the class, individuals and properties to enrich the ontology as specified."
	TranscribeTurn = "Generate the OWL file as specified."
)

// BuildFromProductTree frames a structured product taxonomy for extraction.
// Categories become classes under a shared top-level class, features become
// properties, and leaf products with an ID become individuals.
func BuildFromProductTree(productData string) string {
	return Generic + "\n" +
		"## Scenario\n" +
		"The data describes a **product taxonomy** and its features.\n" +
		"\n" +
		"- **Classes**: represent product categories (e.g., `Retaining Walls`).  \n" +
		"  All should be subclasses of a top-level class.\n" +
		"- **Properties**: represent product features (e.g., `Block weight (kg)`, `Color`).  \n" +
		"  Generalize similar features for consistency across products.\n" +
		"- **Individuals**: represent specific products (tree leaves with an `ID`),  \n" +
		"  each classified under its category and linked to its features.\n" +
		"\n" +
		"The ontology should be derived from the following JSON-like product tree:\n" +
		"```" + productData + "```\n"
}

// EnrichFromText frames free-form logistics paragraphs for a second
// extraction pass over an index that already holds product individuals. New
// classes hang under a Logistic superclass and new properties connect the
// existing products to logistics metrics.
func EnrichFromText(paragraphs string) string {
	return Generic + "\n" +
		"## Scenario\n" +
		"The data contains **logistics details** about products already defined as ontology individuals.\n" +
		"\n" +
		"- **Classes**: logistics concepts, all subclasses of **`Logistic`**.  \n" +
		"- **Properties**: link **Product** individuals with logistics-related individuals or literals (e.g., cost, location, storage time, weight, arrangement).  \n" +
		"- **Individuals/Literals**: represent logistics metrics extracted from the data.\n" +
		"\n" +
		"Focus on defining new **properties**; derive related classes and individuals where needed.  \n" +
		"Ensure the ontology supports reasoning between products and logistics entities.\n" +
		"\n" +
		"**Examples**  \n" +
		"- `(MiniEcoRing, averageStorageTimeDay, 10)` → `MiniEcoRing ∈ Product`  \n" +
		"- `(GrecCurb100, dailyStorageCostEuro, 1.25)` → `GrecCurb100 ∈ Product`  \n" +
		"- `(Warehouse, hasSector, SectorA)`, `(SectorA, produces, EcoRing)` → `SectorA ∈ Logistic`, `EcoRing ∈ RetainingWalls ⊑ Product`\n" +
		"\n" +
		"Use the following text to infer ontology elements:\n" +
		"```" + paragraphs + "```.\n"
}

// TranscribeOWL asks the model to serialize a finished entity index as a
// Protégé-compatible RDF/XML document. The three arguments are the JSON
// renderings of the class, property, and individual tables.
func TranscribeOWL(classesJSON, propertiesJSON, individualsJSON string) string {
	return fmt.Sprintf("## Scenario\n"+
		"Use the following information to build a complete **OWL ontology** (RDF/XML format) compatible with **Protégé**.\n"+
		"To unify terms, use symmetric properties to link equivalent individuals (e.g., `describedAlsoBy(WavePave, WavePave_1074)`, `describedAlsoBy(EcoRing, EcoRing_2298)`, etc.).\n"+
		"\n"+
		"Include:\n"+
		"1. **Classes** with their names, descriptive roles, and subclasses.\n"+
		"2. **Properties** with their names and roles.\n"+
		"3. **Individuals** with their names, classifications, properties, roles.\n"+
		"\n"+
		"### Input Data\n"+
		"- **Classes**  \n"+
		"  ```%s```\n"+
		"  \n"+
		"- **Property**\n"+
		"  ```%s```\n"+
		"  \n"+
		"- **Individual**\n"+
		"  ```%s```\n",
		classesJSON, propertiesJSON, individualsJSON)
}

// Explore returns the system prompt for the question-answering loop. The
// wording depends on the query dialect the evaluator speaks, since the model
// writes the queries itself and must match that syntax exactly. Anything but
// "sparql" selects the embedded Datalog engine, mirroring the evaluator
// default.
func Explore(dialect string) string {
	if strings.EqualFold(strings.TrimSpace(dialect), "sparql") {
		return exploreSPARQL
	}
	return exploreDatalog
}

const exploreSPARQL = "Using the ontology's semantic representation:\n" +
	"\n" +
	"- Create **SPARQL queries** to explore the ontology data and answer the user's question.  \n" +
	"- Provide only the query and its result — **do not propose other actions**.  \n" +
	"- Briefly explain the query used in a **concise** manner.\n"

const exploreDatalog = "Using the ontology's semantic representation:\n" +
	"\n" +
	"- Create **Datalog queries** to explore the ontology data and answer the user's question.  \n" +
	"- Provide only the query and its result — **do not propose other actions**.  \n" +
	"- Briefly explain the query used in a **concise** manner.\n" +
	"\n" +
	"The ontology is loaded as the following predicates. Entity names are quoted strings:\n" +
	"\n" +
	"- `class(Name)` — a declared class.\n" +
	"- `property(Name)` — a declared property.\n" +
	"- `individual(Name)` — a declared individual.\n" +
	"- `role(Name, Role)` — the descriptive role of any entity.\n" +
	"- `subclass_of(Class, Parent)` — a direct subclass edge.\n" +
	"- `subclass_of_closure(Class, Ancestor)` — the transitive subclass closure.\n" +
	"- `instance_of(Individual, Class)` — a direct classification.\n" +
	"- `instance_of_closure(Individual, Class)` — classification through any ancestor class.\n" +
	"- `triple(Subject, Relation, Object)` — a property assertion on an individual.\n" +
	"\n" +
	"Write each query as a single goal, e.g. `?instance_of_closure(X, \"Product\")` or\n" +
	"`?triple(\"MiniEcoRing\", Relation, Object)`.\n"
