package generated

import "testing"

func TestGetSwagger(t *testing.T) {
	swagger, err := GetSwagger()
	if err != nil {
		t.Fatalf("GetSwagger failed: %v", err)
	}

	// ServerInterface の各メソッドに対応する operationId
	operations := []string{
		"healthCheck", "listLayouts", "getBooth", "selectLayout", "takePhoto",
		"finalizeStrip", "retake", "newSession", "backToLayouts", "refreshSession",
		"toggleMirror", "startCamera", "stopCamera", "getBoothPhoto", "downloadStrip",
		"getContactSheet", "getCameraStream",
	}
	found := make(map[string]bool)
	for _, item := range swagger.Paths.Map() {
		for _, op := range item.Operations() {
			found[op.OperationID] = true
		}
	}
	for _, id := range operations {
		if !found[id] {
			t.Errorf("operationId %q が見つかりません", id)
		}
	}
}
