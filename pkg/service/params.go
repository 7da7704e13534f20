package service

import "encoding/json"

// decodeParams unmarshals raw into dst, reporting success. raw has already
// passed through jsonrpc's snake_case/camelCase normalization by the time a
// HandlerFunc sees it.
func decodeParams(raw []byte, dst any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
