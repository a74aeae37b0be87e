package explain

// Template names are "<kind>.<verdict>.<part>" where verdict is fraud or legit
// and part is explanation, detailed or summary.
const templateText = `
{{- define "transaction.fraud.explanation" -}}
• **Transaction Amount**: ₹{{.Amount}} {{if .HighAmount}}significantly exceeds typical spending patterns for this account{{else}}combined with other anomalous factors raises serious concerns{{end}}

• **Transaction Timing**: {{or .Time "late hours"}} {{if .UnusualTime}}falls outside normal business hours and typical user activity patterns{{else}}shows unusual characteristics when combined with other risk factors{{end}}

• **Merchant Category**: "{{.Merchant}}" {{if .HighRiskMerchant}}is associated with higher fraud rates and shows patterns consistent with fraudulent activity{{else}}exhibits suspicious characteristics in this context{{end}}

• **Geographic Location**: Transaction in {{.Location}} demonstrates geographic inconsistencies with the user's established spending patterns

• **Behavioral Analysis**: Advanced machine learning algorithms detected significant deviations from the user's behavioral baseline, including spending velocity anomalies and merchant relationship patterns
{{- end}}

{{- define "transaction.fraud.detailed" -}}
• {{if .HighAmount}}High transaction amount (₹{{.Amount}}){{else}}Anomalous spending pattern{{end}}
• {{if .UnusualTime}}Unusual transaction time ({{or .Time "late night"}}){{else}}Timing concerns{{end}}
• {{if .HighRiskMerchant}}High-risk merchant category ({{.Merchant}}){{else}}Merchant risk factors{{end}}
• Location: {{.Location}}

The combination of these risk indicators exceeds our fraud detection threshold. Recommended action: Block transaction and verify with cardholder.
{{- end}}

{{- define "transaction.fraud.summary" -}}
Fraudulent transaction detected with multiple risk factors. Amount: ₹{{.Amount}} at {{.Location}}. Immediate action required.
{{- end}}

{{- define "transaction.legit.explanation" -}}
• **Transaction Amount**: ₹{{.Amount}} falls within the user's typical spending range and demonstrates consistency with historical transaction data

• **Transaction Timing**: {{or .Time "normal hours"}} corresponds to the user's regular activity patterns and previously authenticated transaction times

• **Merchant Category**: "{{.Merchant}}" matches the user's established purchasing behavior and shows strong correlation with their verified transaction history

• **Geographic Location**: Transaction in {{.Location}} is consistent with the user's geographic patterns and previously validated locations

• **Risk Assessment**: Fraud detection algorithms analyzed multiple data points including spending velocity, merchant relationships, location consistency, device fingerprinting, and behavioral biometrics, all indicating normal, authorized user activity
{{- end}}

{{- define "transaction.legit.detailed" -}}
• Amount (₹{{.Amount}}) is within normal spending limits
• Transaction time ({{or .Time "daytime"}}) aligns with typical user activity
• Merchant category ({{.Merchant}}) matches user's spending history
• Location ({{.Location}}) is consistent with user's geographic patterns

All risk factors are within acceptable thresholds.
{{- end}}

{{- define "transaction.legit.summary" -}}
Legitimate transaction verified. Amount: ₹{{.Amount}} at {{.Location}}. All parameters within normal range.
{{- end}}

{{- define "behavior.fraud.explanation" -}}
• **Behavioral Biometrics**: Advanced behavioral analysis identified anomalous patterns in typing rhythm, keystroke dynamics, and mouse movement trajectories inconsistent with the user's historical interaction fingerprint

• **Navigation Behavior**: Page interaction sequences demonstrate unfamiliar patterns that suggest potential account compromise

• **Session Timing**: {{if .UnusualTime}}The session timing at {{or .Time "late hours"}} falls outside the user's typical activity window and adds to the overall risk profile{{else}}Despite occurring during normal hours at {{or .Time "daytime"}}, the behavioral anomalies present significant security concerns{{end}}

• **Interaction Patterns**: Measured parameters including click patterns, scroll behavior, form interaction speed, and session flow characteristics show multiple deviations from the user's unique behavioral signature

• **Security Assessment**: Session ID {{.SessionID}} exhibits red flags across multiple behavioral vectors that collectively indicate potential unauthorized access or account takeover
{{- end}}

{{- define "behavior.fraud.detailed" -}}
• {{if .UnusualTime}}Unusual session time ({{or .Time "late night"}}){{else}}Behavioral anomalies detected{{end}}
• Anomalous behavioral patterns detected
• Session characteristics differ from user baseline
• Session ID: {{.SessionID}}

Behavioral analysis detected deviations in typing patterns, mouse movements, and navigation behavior compared to the user's established baseline. The behavioral biometrics suggest potential account takeover or unauthorized access.
{{- end}}

{{- define "behavior.fraud.summary" -}}
Suspicious behavioral patterns detected for User {{.UserID}}. Session {{.SessionID}} shows anomalous activity. Potential account compromise.
{{- end}}

{{- define "behavior.legit.explanation" -}}
• **Behavioral Biometrics**: The behavioral biometrics including typing speed, rhythm, and keystroke dynamics align perfectly with the user's historical data

• **Navigation Patterns**: Mouse movement patterns and navigation behavior demonstrate the familiar interaction style learned from previous sessions

• **Session Timing**: {{if .UnusualTime}}Although the session occurs at {{or .Time "late hours"}}, the behavioral patterns remain consistent with the user's authenticated late-night activity patterns{{else}}The session timing at {{or .Time "normal hours"}} falls within the user's typical activity hours{{end}}

• **Interaction Analysis**: All measured parameters including click patterns, scroll behavior, form interaction speed, and page navigation sequences match the user's unique behavioral fingerprint

• **Security Verification**: Session ID {{.SessionID}} shows no anomalies or deviations that would suggest unauthorized access or account compromise, indicating legitimate user activity
{{- end}}

{{- define "behavior.legit.detailed" -}}
• Behavioral patterns match the user's established baseline
• Typing speed and rhythm are consistent with historical data
• Mouse movement patterns align with user's typical navigation style
• Session timing ({{or .Time "daytime"}}) is within normal activity hours
• All behavioral biometrics are within expected parameters for User ID: {{.UserID}}
{{- end}}

{{- define "behavior.legit.summary" -}}
Normal behavioral patterns confirmed for User {{.UserID}}. Session {{.SessionID}} matches established baseline. No anomalies detected.
{{- end}}
`
