package util

import (
	"reflect"
	"testing"
)

func TestSplitCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"md1", []string{"md1"}},
		{"md1, md2 ,md3", []string{"md1", "md2", "md3"}},
		{"md1,,md2,", []string{"md1", "md2"}},
	}
	for _, tt := range tests {
		got := SplitCommaSeparated(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitCommaSeparated(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEnvName(t *testing.T) {
	tests := []struct {
		app, key, want string
	}{
		{"aruba", "svc_account", "UOFT_ARUBA_SVC_ACCOUNT"},
		{"aruba", "site-config", "UOFT_ARUBA_SITE_CONFIG"},
		{"librenms", "api.token", "UOFT_LIBRENMS_API_TOKEN"},
	}
	for _, tt := range tests {
		if got := EnvName(tt.app, tt.key); got != tt.want {
			t.Errorf("EnvName(%q, %q) = %q, want %q", tt.app, tt.key, got, tt.want)
		}
	}
}

func TestKebabCase(t *testing.T) {
	if got := KebabCase("mm_vrrp_hostname"); got != "mm-vrrp-hostname" {
		t.Errorf("KebabCase() = %q", got)
	}
}
