package desfire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetVersionSplitsThreeSevenByteBlocks(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("0102030405060791AF")
	fc.expect("1112131415161791AF")
	fc.expect("2122232425262791" + "00")
	e := NewEngine(fc)

	v, err := e.GetVersion()
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	want := VersionInfo{
		Hardware: [7]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07},
		Software: [7]byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17},
		UID:      [7]byte{0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("VersionInfo mismatch (-want +got):\n%s", diff)
	}
}

func TestGetApplicationIDsParsesLittleEndianTriples(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("0100000200009100")
	e := NewEngine(fc)

	ids, err := e.GetApplicationIDs()
	if err != nil {
		t.Fatalf("GetApplicationIDs: %v", err)
	}
	want := []AID{AID(0x000001), AID(0x000002)}
	if len(ids) != 2 || ids[0] != want[0] || ids[1] != want[1] {
		t.Fatalf("got %v want %v", ids, want)
	}
}

func TestCreateApplicationEncodesAIDAndKeyByte(t *testing.T) {
	fc := newFakeCard(t)
	fc.script = append(fc.script, fakeExchange{
		want: []byte{0x90, 0xCA, 0x00, 0x00, 0x05, 0x03, 0x02, 0x00, 0x0F, 0x80},
		resp: mustHex("9100"),
	})
	e := NewEngine(fc)

	if err := e.CreateApplication(AID(0x000203), 0x0F, 0x00, KeyTypeAES); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
}

func TestSelectApplicationUpdatesCurrentApp(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("9100")
	e := NewEngine(fc)
	sess := &Session{}

	if err := e.SelectApplication(sess, AID(0x030201)); err != nil {
		t.Fatalf("SelectApplication: %v", err)
	}
	if sess.CurrentApp() != AID(0x030201) {
		t.Fatalf("expected current_app updated, got %v", sess.CurrentApp())
	}
}

func TestGetKeySettingsDecodesPackedByte(t *testing.T) {
	fc := newFakeCard(t)
	fc.expect("0F" + "8A" + "9100") // settings=0x0F, packed=10001010 -> keyType bits 10=AES, maxKeys=0x0A
	e := NewEngine(fc)

	info, err := e.GetKeySettings()
	if err != nil {
		t.Fatalf("GetKeySettings: %v", err)
	}
	if info.Settings != 0x0F {
		t.Fatalf("settings: got 0x%02X", info.Settings)
	}
	if info.KeyType != KeyTypeAES {
		t.Fatalf("expected KeyTypeAES, got %v", info.KeyType)
	}
	if info.MaxKeys != 0x0A {
		t.Fatalf("maxKeys: got 0x%02X", info.MaxKeys)
	}
}
