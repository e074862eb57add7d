/*
Copyright 2025 Finboard Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/internal/request"
)

// SlackNotification sends an error message to the configured Slack
// webhook. Transient webhook failures are retried with exponential
// backoff; delivery is best-effort and never fails the caller's run.
func SlackNotification(err error) error {
	data := json.RawMessage(fmt.Sprintf(`{
		"blocks": [
			{
				"type": "header",
				"text": {
					"type": "plain_text",
					"text": "Error From Finboard",
					"emoji": true
				}
			},
			{
				"type": "section",
				"fields": [
					{
						"type": "mrkdwn",
						"text": "*Error:*\n%v"
					},
					{
						"type": "mrkdwn",
						"text": "*Time:*\n%s"
					}
				]
			}
		]
	}`, err, time.Now().Format(time.RFC3339)))

	conf, confErr := config.Fetch()
	if confErr != nil {
		return confErr
	}
	if conf.Notification.Slack.WebhookUrl == "" {
		return nil
	}

	payload, plErr := request.ToJsonReq(&data)
	if plErr != nil {
		return plErr
	}

	operation := func() error {
		req, reqErr := http.NewRequest("POST", conf.Notification.Slack.WebhookUrl, payload)
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}

		var response map[string]interface{}
		resp, callErr := request.Call(req, &response)
		if callErr != nil {
			return callErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	return backoff.Retry(operation, policy)
}

// NotifyError reports an error to every configured channel and logs it.
func NotifyError(systemError error) {
	logrus.Error(systemError)
	go func() {
		if err := SlackNotification(systemError); err != nil {
			logrus.Error("Error sending Slack notification: ", err)
		}
	}()
}
