package rabbit_test

import (
	"context"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/ticketfair/ticketfair/internal/adapters/rabbit"
)

func TestConsumer_DeliveryAndCancellation(t *testing.T) {
	ctx := context.Background()

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	host, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	conn, err := amqp.Dial("amqp://guest:guest@" + host + ":" + port.Port() + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	pub, err := rabbit.NewPublisher(conn)
	if err != nil {
		t.Fatal(err)
	}
	consumer, err := rabbit.NewConsumer(conn, "test.q", []string{"ticket.awarded"})
	if err != nil {
		t.Fatal(err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	deliveries, err := consumer.Consume(consumeCtx)
	if err != nil {
		t.Fatal(err)
	}

	err = pub.Publish(ctx, "ticket.awarded", amqp.Publishing{
		MessageId:   "m1",
		ContentType: "application/json",
		Body:        []byte(`{"ticket_id":"t1"}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case d := <-deliveries:
		if d.RoutingKey != "ticket.awarded" || d.MessageId != "m1" {
			t.Errorf("unexpected delivery %s/%s", d.RoutingKey, d.MessageId)
		}
		d.Ack(false)
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery received")
	}

	// cancelling the consume context ends the stream
	cancel()
	select {
	case _, ok := <-deliveries:
		if ok {
			t.Error("expected the delivery channel to close after cancel")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("delivery channel still open after cancel")
	}
}
