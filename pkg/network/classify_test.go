package network

import "testing"

func TestClassifier_Defaults(t *testing.T) {
	c := NewClassifier(nil, nil)

	if !c.IsEquipmentLogical(50000) {
		t.Error("default equipment-logical code not recognized")
	}
	if c.IsEquipmentLogical(15000) {
		t.Error("PoC code classified as equipment-logical")
	}
	for _, code := range []int64{15000, 50001, 50002, 50003} {
		if !c.IsPoC(code) {
			t.Errorf("default PoC code %d not recognized", code)
		}
	}
	if c.IsPoC(12345) {
		t.Error("ordinary data code classified as PoC")
	}
}

func TestClassifier_ExplicitCodes(t *testing.T) {
	c := NewClassifier([]int64{900}, []int64{901, 902})

	if c.IsEquipmentLogical(50000) {
		t.Error("default leaked through explicit equipment-logical codes")
	}
	if !c.IsEquipmentLogical(900) {
		t.Error("explicit equipment-logical code not recognized")
	}
	if !c.IsPoC(901) || !c.IsPoC(902) {
		t.Error("explicit PoC codes not recognized")
	}
	if c.IsPoC(15000) {
		t.Error("default leaked through explicit PoC codes")
	}
}
