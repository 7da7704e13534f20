package agentcard

// deriveModes inspects a JSON-schema-shaped map and decides which input or
// output modes a skill supports: "file" when a property looks file-shaped,
// "data" when the schema itself is structured (object/array), and "text" as
// the fallback when nothing more specific applies.
func deriveModes(schema map[string]any) []string {
	if schema == nil {
		return []string{"text"}
	}

	var modes []string
	if hasFileProperty(schema) {
		modes = append(modes, "file")
	}
	if schemaType, _ := schema["type"].(string); schemaType == "object" || schemaType == "array" {
		modes = append(modes, "data")
	}
	if len(modes) == 0 {
		modes = append(modes, "text")
	}
	return modes
}

func hasFileProperty(schema map[string]any) bool {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return false
	}
	for _, raw := range props {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := prop["type"].(string); t == "file" {
			return true
		}
		switch format, _ := prop["format"].(string); format {
		case "binary", "byte", "uri":
			return true
		}
	}
	return false
}
