package archive

import "testing"

func TestParseS3URI(t *testing.T) {
	bucket, prefix, err := ParseS3URI("s3://my-bucket/assets/images")
	if err != nil {
		t.Fatalf("ParseS3URI: %v", err)
	}
	if bucket != "my-bucket" {
		t.Errorf("bucket = %q, want %q", bucket, "my-bucket")
	}
	if prefix != "assets/images" {
		t.Errorf("prefix = %q, want %q", prefix, "assets/images")
	}
}

func TestParseS3URIBucketOnly(t *testing.T) {
	bucket, prefix, err := ParseS3URI("s3://my-bucket")
	if err != nil {
		t.Fatalf("ParseS3URI: %v", err)
	}
	if bucket != "my-bucket" || prefix != "" {
		t.Errorf("got (%q, %q), want (%q, %q)", bucket, prefix, "my-bucket", "")
	}
}

func TestParseS3URIInvalid(t *testing.T) {
	for _, uri := range []string{"", "http://bucket/key", "s3://"} {
		if _, _, err := ParseS3URI(uri); err == nil {
			t.Errorf("ParseS3URI(%q) succeeded, want error", uri)
		}
	}
}

func TestS3KeyLayout(t *testing.T) {
	s := NewS3WithClient(nil, "bucket", "assets")
	if got := s.key(42, ".png"); got != "assets/42.png" {
		t.Errorf("key = %q, want %q", got, "assets/42.png")
	}

	// No prefix means keys live at the bucket root.
	s = NewS3WithClient(nil, "bucket", "")
	if got := s.key(42, ".png"); got != "42.png" {
		t.Errorf("key = %q, want %q", got, "42.png")
	}

	// Slashes around the prefix are normalized away.
	s = NewS3WithClient(nil, "bucket", "/assets/")
	if got := s.key(7, ".bin"); got != "assets/7.bin" {
		t.Errorf("key = %q, want %q", got, "assets/7.bin")
	}
}
