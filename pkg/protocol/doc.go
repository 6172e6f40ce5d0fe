// Package protocol carries chart mutations over the wire.
//
// A [Message] is the JSON object exchanged between a backend computation
// and a display:
//
//	{"cmd": ["chart.class.add", "chart.class", "chart"], "args": [], "kwargs": {...}, "uuid": "..."}
//
// The command may also be sent as a single dot-separated string; it is
// normalized to the list of its dot-prefixes, longest first. A [Dispatcher]
// routes a message to the handler registered for the longest matching
// prefix and applies it to a [chart.Chart].
//
// Decoding failures (malformed JSON, unknown type tags, dangling references
// in a batch) are reported to the caller and to the observability hooks;
// they never leave the chart partially modified.
//
// The [Batcher] is the sending side: it collects outgoing messages, keeps
// only the first message per key, and flushes them as one "chart.batched"
// message.
package protocol
