package provider

import "testing"

func TestDataSourceName(t *testing.T) {
	cases := []struct {
		driver, url, user, pass string
		expected                string
	}{
		{"pgx", "postgres://db:5432/app", "", "", "postgres://db:5432/app"},
		{"pgx", "postgres://db:5432/app?sslmode=disable", "app", "s3cret", "postgres://app:s3cret@db:5432/app?sslmode=disable"},
		{"pgx", "postgres://owner@db/app", "app", "s3cret", "postgres://owner@db/app"},
		{"postgres", "postgres://db/app", "app", "", "postgres://app@db/app"},
		{"mysql", "tcp(db:3306)/app", "app", "s3cret", "app:s3cret@tcp(db:3306)/app"},
		{"mysql", "root@tcp(db:3306)/app", "app", "s3cret", "root@tcp(db:3306)/app"},
		{"postgres", "host=db dbname=app", "app", "it's secret", `host=db dbname=app user=app password='it\'s secret'`},
		{"postgres", "host=db user=owner", "app", "pw", "host=db user=owner password=pw"},
	}
	for _, c := range cases {
		if got := DataSourceName(c.driver, c.url, c.user, c.pass); got != c.expected {
			t.Errorf("DataSourceName(%q, %q): expected %q, got %q", c.driver, c.url, c.expected, got)
		}
	}
}
