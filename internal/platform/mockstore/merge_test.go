package mockstore

import "testing"

func TestMerge(t *testing.T) {
	base := widget{ID: "w1", Name: "gear", Color: "red", Count: 3}

	got, err := Merge(base, widgetPatch{Color: str("blue")})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.Color != "blue" || got.Name != "gear" || got.Count != 3 || got.ID != "w1" {
		t.Errorf("unexpected merge result %+v", got)
	}
	if base.Color != "red" {
		t.Error("merge must not mutate its base")
	}
}

func TestMerge_NilPatch(t *testing.T) {
	base := widget{ID: "w1", Name: "gear"}
	got, err := Merge(base, nil)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.Name != "gear" {
		t.Errorf("expected base unchanged, got %+v", got)
	}
}

func TestMerge_ZeroValuesOverwrite(t *testing.T) {
	base := widget{ID: "w1", Count: 7}
	zero := 0
	got, err := Merge(base, widgetPatch{Count: &zero})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.Count != 0 {
		t.Errorf("expected explicit zero to overwrite, got %d", got.Count)
	}
}

func TestMerge_NonObjectPatch(t *testing.T) {
	if _, err := Merge(widget{}, []string{"x"}); err == nil {
		t.Error("expected error for non-object patch")
	}
}
