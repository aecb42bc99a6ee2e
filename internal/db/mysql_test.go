package db

import (
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{name: "plain", dsn: "blog:secret@tcp(localhost:3306)/blog"},
		{name: "parse time already set", dsn: "blog:secret@tcp(db:3306)/blog?parseTime=true"},
		{name: "garbage", dsn: "not a dsn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			cfg, err := mysqldriver.ParseDSN(got)
			require.NoError(t, err)
			assert.True(t, cfg.ParseTime)
			assert.True(t, cfg.ClientFoundRows)
			assert.Equal(t, "blog", cfg.DBName)
		})
	}
}
