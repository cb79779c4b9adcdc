package gcs

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/suite"
	"google.golang.org/api/option"
)

const testBucket = "pdfrag-test"

func TestGCSTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping gcs integration tests in short mode")
	}
	suite.Run(t, new(GCSTestSuite))
}

type GCSTestSuite struct {
	suite.Suite
	container *dockertest.Resource
	client    *storage.Client
	adapter   *Adapter
}

func (s *GCSTestSuite) SetupSuite() {
	r, err := startFakeGCSContainer()
	if err != nil {
		log.Fatalf("could not start fake gcs container: %s", err)
	}
	s.container = r

	ctx, cancel := testContext()
	defer cancel()

	// The client picks the emulator up from STORAGE_EMULATOR_HOST.
	s.client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	s.Require().NoError(err)
	s.Require().NoError(s.client.Bucket(testBucket).Create(ctx, "test-project", nil))

	s.adapter = New(s.client, testBucket, WithPrefix("/uploads/"))
}

func (s *GCSTestSuite) TearDownSuite() {
	s.Require().NoError(s.client.Close())
	s.Require().NoError(s.container.Close())
}

func (s *GCSTestSuite) TestWriteReadDelete() {
	ctx, cancel := testContext()
	defer cancel()

	s.True(s.adapter.Remote())

	location, err := s.adapter.Write(ctx, "job-annual.pdf", strings.NewReader("%PDF-1.7"))
	s.Require().NoError(err)
	s.Equal("gs://"+testBucket+"/uploads/job-annual.pdf", location)

	rc, err := s.adapter.Read(ctx, location)
	s.Require().NoError(err)
	contents, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.Require().NoError(rc.Close())
	s.Equal("%PDF-1.7", string(contents))

	s.Require().NoError(s.adapter.Delete(ctx, location))
	s.Require().NoError(s.adapter.Delete(ctx, location))

	_, err = s.adapter.Read(ctx, location)
	s.Require().ErrorIs(err, storage.ErrObjectNotExist)
}

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func startFakeGCSContainer() (*dockertest.Resource, error) {
	// Start a new docker pool
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("could not construct pool: %w", err)
	}

	// Uses pool to try to connect to Docker
	err = pool.Client.Ping()
	if err != nil {
		return nil, fmt.Errorf("could not connect to Docker: %w", err)
	}

	r, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "fsouza/fake-gcs-server",
		Tag:        "1.52",
		Cmd:        []string{"-scheme", "http", "-port", "4443"},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	if err != nil {
		return nil, fmt.Errorf("could not start resource: %w", err)
	}

	r.Expire(60)

	host := "localhost:" + r.GetPort("4443/tcp")
	os.Setenv("STORAGE_EMULATOR_HOST", host)

	if err := pool.Retry(func() error {
		resp, err := http.Get("http://" + host + "/storage/v1/b")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not connect to fake gcs: %w", err)
	}

	return r, nil
}
