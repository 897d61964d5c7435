package app

import (
	"path/filepath"
	"testing"

	"github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/models"
	"github.com/inkwell-ai/creditledger/internal/security"
)

func TestCreateAdminWithConn_SetsSuperAdmin(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if errCreate := CreateAdminWithConn(conn, "admin", "password"); errCreate != nil {
		t.Fatalf("CreateAdminWithConn: %v", errCreate)
	}

	var admin models.Admin
	if errFind := conn.First(&admin).Error; errFind != nil {
		t.Fatalf("find admin: %v", errFind)
	}
	if !admin.IsSuperAdmin {
		t.Fatalf("expected first admin to be super admin")
	}
	if !security.CheckPassword(admin.Password, "password") {
		t.Fatalf("stored password hash should verify")
	}
}

func TestHasAdminInitialized(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	initialized, errCheck := HasAdminInitialized(conn)
	if errCheck != nil {
		t.Fatalf("HasAdminInitialized: %v", errCheck)
	}
	if initialized {
		t.Fatalf("fresh database should have no admins")
	}

	if errCreate := CreateAdminWithConn(conn, "admin", "password"); errCreate != nil {
		t.Fatalf("CreateAdminWithConn: %v", errCreate)
	}
	initialized, errCheck = HasAdminInitialized(conn)
	if errCheck != nil {
		t.Fatalf("HasAdminInitialized: %v", errCheck)
	}
	if !initialized {
		t.Fatalf("admin should be detected after creation")
	}
}
