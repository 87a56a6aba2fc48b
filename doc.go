// Package vcschema provides:
//
// - A form model of Verifiable Credential templates (FormData, FormProperty, Fields)
// - Pure conversion between the form model and the JSON Schema wire format (Export/Import)
// - A stable error model via Issues (JSON Pointer, code, message)
// - Parsing of schema documents from JSON or YAML with duplicate-key detection
//
// Design policy:
// - Keep the model and conversions in the root package; put wire types under jsonschema/.
// - Place example generation under example/, JSON-LD checks under normalize/ and
//   session state under editor/. The CLI lives in cmd/vcschema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	doc, err := vcschema.ParseSchema(data)
//	form, contexts, diag, err := vcschema.Import(doc)
//
//	doc = vcschema.Export(form, contexts)
//	out, err := jsonschema.MarshalIndent(doc)
package vcschema
