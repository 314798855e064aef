package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"CNRS/models"

	"gopkg.in/gomail.v2"
)

// SendUnverifiedBatchEmail notifies Medical Records staff about batches that
// were approved but never counted back in.
func SendUnverifiedBatchEmail(recipients []string, batches []models.BatchRequest) error {
	if len(recipients) == 0 || len(batches) == 0 {
		return nil
	}

	fromEmail := os.Getenv("SMTP_USER")

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", fmt.Sprintf("%d case note batch(es) awaiting verification", len(batches)))

	var plain strings.Builder
	plain.WriteString("The following approved batches have not been verified:\n\n")
	var rows strings.Builder
	for _, batch := range batches {
		plain.WriteString(fmt.Sprintf("- %s (created %s)\n", batch.BatchNumber, batch.CreatedAt.Format("2006-01-02")))
		rows.WriteString(fmt.Sprintf("<tr><td>%s</td><td>%s</td></tr>", batch.BatchNumber, batch.CreatedAt.Format("2006-01-02")))
	}
	m.SetBody("text/plain", plain.String())

	htmlBody := `
	<!DOCTYPE html>
	<html>
	<head>
		<title>Batches Awaiting Verification</title>
		<style>
			body {
				font-family: Arial, sans-serif;
				background-color: #f4f4f4;
				margin: 0;
				padding: 0;
			}
			.container {
				background-color: #ffffff;
				margin: 20px auto;
				padding: 20px;
				border-radius: 8px;
				box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);
				max-width: 600px;
			}
			h1 {
				color: #333333;
			}
			table {
				width: 100%;
				border-collapse: collapse;
			}
			td, th {
				border: 1px solid #dddddd;
				padding: 8px;
				color: #666666;
			}
		</style>
	</head>
	<body>
		<div class="container">
			<h1>Batches Awaiting Verification</h1>
			<p>The following approved batches have not been verified yet. Please count the case notes in and record the verification.</p>
			<table>
				<tr><th>Batch Number</th><th>Created</th></tr>
				` + rows.String() + `
			</table>
		</div>
	</body>
	</html>
	`
	m.AddAlternative("text/html", htmlBody)

	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		return fmt.Errorf("invalid SMTP_PORT value: %w", err)
	}

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
