package kimeru_test

import (
	"os"
	"strings"
	"testing"
)

func readArtifact(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("%s should exist: %v", name, err)
	}
	return string(data)
}

func TestDockerfile(t *testing.T) {
	content := readArtifact(t, "Dockerfile")

	t.Run("マルチステージビルドで軽量イメージを使う", func(t *testing.T) {
		if !strings.Contains(content, "FROM golang:") {
			t.Error("Dockerfile should contain a Go builder stage (FROM golang:)")
		}
		var lastFrom string
		for _, line := range strings.Split(content, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "FROM ") {
				lastFrom = trimmed
			}
		}
		if !strings.Contains(lastFrom, "gcr.io/distroless") && !strings.Contains(lastFrom, "alpine") && !strings.Contains(lastFrom, "scratch") {
			t.Errorf("final stage should use a minimal base image, got: %s", lastFrom)
		}
	})

	t.Run("kimeruバイナリをENTRYPOINTで起動する", func(t *testing.T) {
		if !strings.Contains(content, "kimeru") {
			t.Error("Dockerfile should build a binary named 'kimeru'")
		}
		if !strings.Contains(content, "ENTRYPOINT") {
			t.Error("Dockerfile should declare an ENTRYPOINT")
		}
	})

	t.Run("healthcheckサブコマンドをHEALTHCHECKに使う", func(t *testing.T) {
		if !strings.Contains(content, "HEALTHCHECK") || !strings.Contains(content, `"healthcheck"`) {
			t.Error("Dockerfile HEALTHCHECK should invoke the healthcheck subcommand")
		}
	})
}

func TestDockerCompose(t *testing.T) {
	content := readArtifact(t, "docker-compose.yml")

	t.Run("web・worker・dbの3コンテナ構成", func(t *testing.T) {
		for _, svc := range []string{"web:", "worker:", "db:"} {
			if !strings.Contains(content, svc) {
				t.Errorf("docker-compose.yml should contain service %q", svc)
			}
		}
		if !strings.Contains(content, "postgres:") {
			t.Error("docker-compose.yml should use a PostgreSQL image for db")
		}
	})

	t.Run("workerはworkerサブコマンドで起動する", func(t *testing.T) {
		if !strings.Contains(content, `["worker"]`) {
			t.Error("worker service should use the 'worker' subcommand")
		}
	})

	t.Run("webにはバックエンドAPIのURLが渡される", func(t *testing.T) {
		if !strings.Contains(content, "BACKEND_API_URL") {
			t.Error("web service should configure BACKEND_API_URL")
		}
	})

	t.Run("DBは内部ネットワークに隔離される", func(t *testing.T) {
		if !strings.Contains(content, "networks:") {
			t.Error("docker-compose.yml should define networks for egress control")
		}
		if !strings.Contains(content, "internal: true") {
			t.Error("docker-compose.yml should isolate the database on an internal network")
		}
	})

	t.Run("webはバックエンドへの外部通信を許可する", func(t *testing.T) {
		if !strings.Contains(content, "external") {
			t.Error("docker-compose.yml should give web an external-facing network")
		}
	})
}
