package publish

import "testing"

func TestReconcileUniform(t *testing.T) {
	resolved := Reconcile([]bool{true, true, true})
	value, uniform := resolved.Uniform()
	if !uniform || !value {
		t.Fatalf("expected uniform true, got uniform=%v value=%v", uniform, value)
	}
	if resolved.Divergent() {
		t.Fatal("uniform selection must not report divergent")
	}
}

func TestReconcileDivergent(t *testing.T) {
	resolved := Reconcile([]string{"mobu_routine_work", "mobu_asset_work"})
	if _, uniform := resolved.Uniform(); uniform {
		t.Fatal("divergent selection must not report uniform")
	}
	if !resolved.Divergent() {
		t.Fatal("expected divergent")
	}
}

func TestReconcileEmpty(t *testing.T) {
	resolved := Reconcile[int](nil)
	if !resolved.Empty() {
		t.Fatal("expected empty")
	}
	if resolved.Divergent() {
		t.Fatal("empty selection must not report divergent")
	}
}
