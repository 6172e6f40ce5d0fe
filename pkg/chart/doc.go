// Package chart implements the state model of a spectral sequence chart.
//
// A [Chart] owns classes (nodes at a multi-degree) and edges between them,
// keyed by uuid. Every visual attribute that can change from page to page
// is a [page.Property]; the chart also carries the display state a client
// needs (page list, ranges, projections from degrees to the plane).
//
// # Entities
//
// [Class] holds its page-indexed style and a weak link to its owner.
// Edges come in three variants behind the [Edge] interface:
//
//   - [Structline]: page-indexed style, drawn while visible on the lower page
//   - [Differential]: fixed style, drawn on the pages containing its page
//   - [Extension]: fixed style, drawn only on the limit page
//
// Edges store the uuids of their endpoints and resolve them through the
// chart on demand; there are no owning pointers between entities.
//
// # Updates
//
// Single mutations (AddClass, DeleteEdge, ...) take effect immediately and
// notify subscribers. [Chart.ApplyMessages] applies an ordered batch of
// [Update] messages atomically: either all succeed or the chart is rolled
// back and nothing is delivered to subscribers. Edges that arrive before
// their endpoints wait in a pending set until a later batch supplies them.
//
// # Serialization
//
// Every entity marshals to a JSON object tagged with its [Kind]. [Decode]
// reverses this through the closed [Registry]:
//
//	data, _ := json.Marshal(c)
//	back, err := chart.Decode(data)
package chart
