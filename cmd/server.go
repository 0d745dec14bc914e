package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"billplan/db/db"
	"billplan/db/mem"
	"billplan/db/pg"
	"billplan/libs/logging"
	"billplan/mq/gcppubsub"
	"billplan/mq/goch"
	"billplan/mq/mq"
	"billplan/mq/rabbit"
	"billplan/web"
)

func buildStore(useMem bool) (db.PlanDBWrapper, error) {
	if useMem {
		return mem.NewInMemoryPlanDBWrapper(), nil
	}
	gormDB, err := pg.InitPostgresGORM(pg.CreateDSN())
	if err != nil {
		return nil, err
	}
	return pg.NewGORMPlanDBWrapper(gormDB), nil
}

func buildQueues(mode mq.Mode) (mq.PlanMessageQueueWrapper, error) {
	switch mode {
	case mq.ModeRabbitMQ:
		conn, err := rabbit.NewRabbitConnection(context.Background(), rabbit.CreateAmqpURL())
		if err != nil {
			return nil, err
		}
		return rabbit.NewRabbitPlanMessageQueueWrapper(conn)
	case mq.ModeGCPPubSub:
		return gcppubsub.NewGCPPlanMessageQueueWrapper(context.Background(), gcppubsub.GetGCPProjectID())
	default:
		return goch.NewGoChanPlanMessageQueueWrapper(), nil
	}
}

func serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `This command starts the web server for the application.`,
		Run: func(cmd *cobra.Command, args []string) {
			isDev := cmd.Flags().Lookup("dev").Value.String() == "true"
			port := cmd.Flags().Lookup("port").Value.String()
			mqMode := cmd.Flags().Lookup("mq").Value.String()
			useMem := cmd.Flags().Lookup("mem").Value.String() == "true"

			logging.Setup()

			store, err := buildStore(useMem)
			if err != nil {
				log.Fatalf("Failed to initialize store: %v", err)
			}
			queues, err := buildQueues(mq.Mode(mqMode))
			if err != nil {
				log.Fatalf("Failed to initialize message queues: %v", err)
			}

			err = web.Serve(web.ServiceConfig{
				IsDev:  isDev,
				Port:   port,
				MqMode: mq.Mode(mqMode),
				UseMem: useMem,
			}, store, queues)
			if err != nil {
				log.Fatalf("Server stopped: %v", err)
			}
		},
	}

	cmd.Flags().Bool("dev", true, "Run in development mode")
	cmd.Flags().String("port", "8080", "Port to run the web server on")
	cmd.Flags().String("mq", "go_chan", "Message queue mode (go_chan, rabbitmq, gcp_pub_sub)")
	cmd.Flags().Bool("mem", false, "Use the in-memory store instead of PostgreSQL")

	return cmd
}
