// Package memory provides the document index consulted by the
// retrieve_documents tool. Documents are split into overlapping chunks and
// ranked by query-term overlap. The Retriever contract lives in core so that
// vector-backed indexes can be swapped in at wiring time.
package memory
