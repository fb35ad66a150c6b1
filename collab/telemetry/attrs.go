package telemetry

import "go.opentelemetry.io/otel/attribute"

// tagsToAttrs turns the "key", "value", "key", "value", ... varargs used by
// Metrics into OTEL attributes, dropping a trailing unpaired tag.
func tagsToAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}
