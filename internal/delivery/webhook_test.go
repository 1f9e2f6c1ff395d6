package delivery

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"leadflow-platform/internal/channels"
	"leadflow-platform/internal/comms"
)

func TestParseStatusCallback_CanonicalFields(t *testing.T) {
	form := url.Values{}
	form.Set("external_id", "prov-9")
	form.Set("status", "Delivered")

	r := httptest.NewRequest("POST", "/callbacks/delivery", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("ParseStatusCallback: %v", err)
	}
	if f.ExternalID != "prov-9" || f.Status != "delivered" {
		t.Fatalf("parsed = %+v", f)
	}
}

func TestParseStatusCallback_ProviderAliases(t *testing.T) {
	form := url.Values{}
	form.Set("MessageSid", "SM123")
	form.Set("MessageStatus", "undelivered")
	form.Set("ErrorCode", "30003")

	r := httptest.NewRequest("POST", "/callbacks/delivery", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, err := ParseStatusCallback(r)
	if err != nil {
		t.Fatalf("ParseStatusCallback: %v", err)
	}
	if f.ExternalID != "SM123" || f.Status != "undelivered" || f.ErrorCode != "30003" {
		t.Fatalf("parsed = %+v", f)
	}
}

func TestParseStatusCallback_MissingFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/callbacks/delivery", strings.NewReader("status=sent"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := ParseStatusCallback(r); err == nil {
		t.Fatal("expected error for missing external id")
	}
}

func TestMapStatus(t *testing.T) {
	cases := []struct {
		in   string
		want comms.DeliveryStatus
		ok   bool
	}{
		{"queued", comms.StatusPending, true},
		{"Sent", comms.StatusSent, true},
		{"DELIVERED", comms.StatusDelivered, true},
		{"read", comms.StatusDelivered, true},
		{"undelivered", comms.StatusFailed, true},
		{"bounced", comms.StatusFailed, true},
		{"exploded", "", false},
	}
	for _, tc := range cases {
		got, ok := MapStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("MapStatus(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRegistry_UnconfiguredChannelIsNil(t *testing.T) {
	reg := NewRegistry().Register(channels.ChannelEmail, NewLogDispatcher(channels.ChannelEmail))

	if reg.For(channels.ChannelEmail) == nil {
		t.Fatal("email dispatcher missing")
	}
	if reg.For(channels.ChannelSMS) != nil {
		t.Fatal("sms should be unconfigured")
	}
}

func TestLogDispatcher_FabricatesExternalID(t *testing.T) {
	d := NewLogDispatcher(channels.ChannelChat)
	res, err := d.Send(context.Background(), comms.SendRequest{
		CommunicationID: "comm-1", LeadID: "lead-1",
		Channel: channels.ChannelChat, Recipient: "session-1", Content: "hi",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.HasPrefix(res.ExternalID, "local-") {
		t.Fatalf("external id = %q", res.ExternalID)
	}
	if d.Name() != "log-chat" {
		t.Fatalf("name = %q", d.Name())
	}
}
