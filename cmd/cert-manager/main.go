// cert-manager is the Lambda entrypoint for the certificate and alias
// custom resource.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/theory-cloud/certtheory"
	"github.com/theory-cloud/certtheory/pkg/certificates"
	"github.com/theory-cloud/certtheory/pkg/dns"
	"github.com/theory-cloud/certtheory/pkg/notify"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal("loading aws config", zap.Error(err))
	}

	dnsService := dns.NewServiceFromClient(route53.NewFromConfig(cfg), dns.ServiceConfig{
		Logger: log.Named("dns"),
	})
	certService := certificates.NewServiceFromClient(acm.NewFromConfig(cfg), certificates.ServiceConfig{
		Logger: log.Named("certificates"),
	})

	manager := certtheory.New(certService, dnsService, certtheory.WithLogger(log))
	notifier := notify.FromEnvironment(sns.NewFromConfig(cfg))

	lambda.Start(cfn.LambdaWrap(manager.CustomResourceHandler(notifier)))
}
