package avd

import "testing"

func TestDetect(t *testing.T) {
	t.Setenv("ANDROID_SDK_ROOT", "")
	t.Setenv("ANDROID_HOME", "/opt/android-sdk")
	t.Setenv("AVDHELPER_API_LEVEL", "34")
	t.Setenv("AVDHELPER_CORRELATION_ID", "")

	env := Detect()
	if env.SDKRoot != "/opt/android-sdk" {
		t.Fatalf("expected ANDROID_HOME fallback, got %q", env.SDKRoot)
	}
	if env.APILevel != "34" || env.ABI != DefaultABI || env.Tag != DefaultTag {
		t.Fatalf("unexpected image settings %q %q %q", env.APILevel, env.Tag, env.ABI)
	}
	if env.CorrelationID == "" {
		t.Fatal("expected a generated correlation ID")
	}
	if env.Tools == nil {
		t.Fatal("Tools should be resolved")
	}
}

func TestDetectPrefersSDKRoot(t *testing.T) {
	t.Setenv("ANDROID_SDK_ROOT", "/sdk/root")
	t.Setenv("ANDROID_HOME", "/sdk/home")
	t.Setenv("AVDHELPER_CORRELATION_ID", "fixed")

	env := Detect()
	if env.SDKRoot != "/sdk/root" {
		t.Fatalf("expected ANDROID_SDK_ROOT, got %q", env.SDKRoot)
	}
	if env.CorrelationID != "fixed" {
		t.Fatalf("expected fixed correlation ID, got %q", env.CorrelationID)
	}
}
