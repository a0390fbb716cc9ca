package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
    cases := []struct {
        name string
        in   string
        want string
        ok   bool
    }{
        {"full prefix", "255759123123", "255759123123", true},
        {"leading zero", "0759123123", "255759123123", true},
        {"embedded spaces", " 0759 123 123 ", "255759123123", true},
        {"empty", "", "", false},
        {"too short", "07591231", "", false},
        {"too long", "2557591231234", "", false},
        {"wrong country code", "254759123123", "", false},
        {"letters", "07591abc23", "", false},
        {"plus prefix", "+255759123123", "", false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got, ok := NormalizePhone(tc.in)
            if ok != tc.ok || got != tc.want {
                t.Fatalf("NormalizePhone(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
            }
        })
    }
}

func TestNormalizePhoneBothFormsAgree(t *testing.T) {
    a, okA := NormalizePhone("0759123123")
    b, okB := NormalizePhone("255759123123")
    if !okA || !okB || a != b {
        t.Fatalf("forms disagree: %q (%v) vs %q (%v)", a, okA, b, okB)
    }
}
