// File: internal/browser/stealth.go
package browser

// stealthScript is injected before any page script runs. It papers over the
// navigator surface that headless automation leaks: the webdriver flag, the
// missing chrome runtime object, the permissions query shortcut, and empty
// plugin/language lists.
const stealthScript = `
(() => {
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});

	window.chrome = window.chrome || { runtime: {} };

	if (window.navigator.permissions && window.navigator.permissions.query) {
		const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
		window.navigator.permissions.query = (parameters) => (
			parameters.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: originalQuery(parameters)
		);
	}

	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});

	Object.defineProperty(navigator, 'languages', {
		get: () => ['tr-TR', 'tr', 'en-US', 'en'],
	});
})();
`
