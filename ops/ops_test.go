package ops_test

import (
	"context"
	"errors"
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"eduplatform-backend/ops"
)

var _ = Describe("Health", func() {
	var (
		ctx    context.Context
		srv    *ops.Server
		conn   *grpc.ClientConn
		client healthpb.HealthClient
		dbErr  error
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbErr = nil
		srv = ops.New(map[string]ops.Check{
			"store": func(context.Context) error { return dbErr },
			"cache": func(context.Context) error { return nil },
		})

		lis := bufconn.Listen(1 << 20)
		go func() {
			_ = srv.Serve(lis)
		}()

		var err error
		conn, err = grpc.DialContext(ctx, "bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		Expect(err).To(BeNil())
		client = healthpb.NewHealthClient(conn)
	})

	AfterEach(func() {
		_ = conn.Close()
		srv.Stop()
	})

	status := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		Expect(err).To(BeNil())
		return res.Status
	}

	Specify("not serving before the first probe", func() {
		Expect(status("")).To(Equal(healthpb.HealthCheckResponse_NOT_SERVING))
	})

	Specify("serving when every check passes", func() {
		Expect(srv.Probe(ctx)).To(BeTrue())
		Expect(status("")).To(Equal(healthpb.HealthCheckResponse_SERVING))
		Expect(status("store")).To(Equal(healthpb.HealthCheckResponse_SERVING))
	})

	Specify("one failing check takes the whole server out", func() {
		dbErr = errors.New("connection refused")
		Expect(srv.Probe(ctx)).To(BeFalse())
		Expect(status("")).To(Equal(healthpb.HealthCheckResponse_NOT_SERVING))
		Expect(status("store")).To(Equal(healthpb.HealthCheckResponse_NOT_SERVING))
		Expect(status("cache")).To(Equal(healthpb.HealthCheckResponse_SERVING))

		dbErr = nil
		Expect(srv.Probe(ctx)).To(BeTrue())
		Expect(status("")).To(Equal(healthpb.HealthCheckResponse_SERVING))
	})

	Specify("sad path - unknown service", func() {
		_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "billing"})
		Expect(err).NotTo(BeNil())
	})
})
