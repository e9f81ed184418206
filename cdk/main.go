package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type TakwiraStackProps struct {
	awscdk.StackProps
}

// NewTakwiraStack deploys the server binary as a Lambda behind a REST API. The
// players table lives in an external Postgres named by POSTGRES_DSN at synth
// time; Redis is optional and keeps tutorial flags across instances.
func NewTakwiraStack(scope constructs.Construct, id string, props *TakwiraStackProps) awscdk.Stack {
	var stackProps awscdk.StackProps
	if props != nil {
		stackProps = props.StackProps
	}

	stack := awscdk.NewStack(scope, &id, &stackProps)

	env := map[string]*string{
		"APP":             jsii.String("prod"),
		"STORE_BACKEND":   jsii.String("postgres"),
		"POSTGRES_DSN":    jsii.String(os.Getenv("POSTGRES_DSN")),
		"DB_AUTO_MIGRATE": jsii.String("true"),
		"LOG_FORMAT":      jsii.String("json"),
		"METRICS_ENABLED": jsii.String("false"),
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		env["REDIS_URL"] = jsii.String(redisURL)
	}

	lambdaFn := awslambda.NewFunction(stack, jsii.String("TakwiraApi"), &awslambda.FunctionProps{
		Runtime:     awslambda.Runtime_PROVIDED_AL2023(),
		Handler:     jsii.String("bootstrap"),
		Code:        awslambda.Code_FromAsset(jsii.String("../dist"), nil),
		Environment: &env,
		MemorySize:  jsii.Number(256),
		Timeout:     awscdk.Duration_Seconds(jsii.Number(15)),
	})

	api := awsapigateway.NewLambdaRestApi(stack, jsii.String("TakwiraApiGateway"), &awsapigateway.LambdaRestApiProps{
		Handler: lambdaFn,
	})

	awscdk.NewCfnOutput(stack, jsii.String("ApiUrl"), &awscdk.CfnOutputProps{Value: api.Url()})

	return stack
}

func main() {
	app := awscdk.NewApp(nil)
	NewTakwiraStack(app, "TakwiraStack", &TakwiraStackProps{})
	app.Synth(nil)
}
