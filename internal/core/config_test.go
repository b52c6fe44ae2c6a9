package core

import (
	"strings"
	"testing"
)

func TestConfigListenAddress(t *testing.T) {
	cfg := &Config{Hostname: "127.0.0.1", Port: 25565}

	if addr := cfg.ListenAddress(); addr != "127.0.0.1:25565" {
		t.Errorf("ListenAddress() = %s, want 127.0.0.1:25565", addr)
	}
}

func TestConfigDatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Engine = "postgres"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.Name = "testdb"
	cfg.Database.Username = "testuser"
	cfg.Database.Password = "testpassword"
	cfg.Database.SSLMode = "disable"

	url := cfg.DatabaseURL()
	expected := "host=localhost port=5432 dbname=testdb user=testuser password=testpassword sslmode=disable"
	if url != expected {
		t.Errorf("DatabaseURL() want = %s, got = %s", expected, url)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := &Config{}
	valid.Server.DuplicateLoginPolicy = DuplicatePolicyEvict
	valid.Database.Engine = "sqlite"
	if err := valid.validate(); err != nil {
		t.Errorf("validate() returned an unexpected error: %v", err)
	}

	badPolicy := &Config{}
	badPolicy.Server.DuplicateLoginPolicy = "kick-both"
	badPolicy.Database.Engine = "sqlite"
	if err := badPolicy.validate(); err == nil {
		t.Error("expected an error for an unrecognized duplicate login policy")
	} else if !strings.Contains(err.Error(), "duplicate_login_policy") {
		t.Errorf("error does not name the offending option: %v", err)
	}

	badEngine := &Config{}
	badEngine.Server.DuplicateLoginPolicy = DuplicatePolicyReject
	badEngine.Database.Engine = "mysql"
	if err := badEngine.validate(); err == nil {
		t.Error("expected an error for an unsupported database engine")
	}
}
