package app

import (
	"testing"

	"go.uber.org/fx"
)

func TestModuleGraph(t *testing.T) {
	t.Setenv("SPARK_HOME", t.TempDir())
	if err := fx.ValidateApp(Module(Params{Profile: "test"})); err != nil {
		t.Fatalf("ValidateApp: %v", err)
	}
}
